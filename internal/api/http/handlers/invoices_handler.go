package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/tableflow/order-service/internal/api/dto"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/service"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

// InvoicesHandler renders bills for a set of orders.
type InvoicesHandler struct {
	invoices *service.InvoiceService
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(invoices *service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{invoices: invoices}
}

// Build handles POST /api/invoices.
func (h *InvoicesHandler) Build(c *fiber.Ctx) error {
	actor, req, err := h.parse(c)
	if err != nil {
		return err
	}
	bill, err := h.invoices.Build(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBillResponse(bill)})
}

// HTML handles POST /api/invoices/html.
func (h *InvoicesHandler) HTML(c *fiber.Ctx) error {
	actor, req, err := h.parse(c)
	if err != nil {
		return err
	}
	page, _, err := h.invoices.RenderHTML(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(page)
}

// PDF handles POST /api/invoices/pdf.
func (h *InvoicesHandler) PDF(c *fiber.Ctx) error {
	actor, req, err := h.parse(c)
	if err != nil {
		return err
	}
	doc, bill, err := h.invoices.RenderPDF(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	c.Type("pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", bill.Header.Number+".pdf"))
	return c.Send(doc)
}

func (h *InvoicesHandler) parse(c *fiber.Ctx) (actor events.Actor, req service.InvoiceRequest, err error) {
	actor, err = actorFrom(c)
	if err != nil {
		return actor, req, err
	}
	var body dto.InvoiceRequest
	if err := c.BodyParser(&body); err != nil {
		return actor, req, invalidPayload()
	}
	if len(body.OrderIDs) == 0 {
		return actor, req, apperrors.NewValidationError("order_ids is required", nil)
	}
	return actor, service.InvoiceRequest{OrderIDs: body.OrderIDs, BilledTo: body.BilledTo, Number: body.Number}, nil
}

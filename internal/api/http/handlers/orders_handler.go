package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tableflow/order-service/internal/api/dto"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/service"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

// OrdersHandler exposes order endpoints.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	input := service.PlaceOrderInput{
		CustomerID:  req.CustomerID,
		Destination: req.Destination,
		Notes:       req.Notes,
		Items:       make([]service.OrderItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.OrderItemInput{
			Label:            item.Label,
			Size:             item.Size,
			Quantity:         item.Quantity,
			UnitRate:         item.UnitRate,
			HasFrontPanel:    item.HasFrontPanel,
			FrontPanelLength: item.FrontPanelLength,
		})
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// List handles GET /api/orders.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.orders.ListOrders(c.UserContext(), actor, parseOrderQuery(c))
	if err != nil {
		return err
	}

	resp := make([]dto.OrderResponse, 0, len(page.Orders))
	for i := range page.Orders {
		resp = append(resp, dto.NewOrderResponse(&page.Orders[i]))
	}
	return c.JSON(fiber.Map{
		"data": resp,
		"meta": dto.OrderListMeta{Page: page.Page, PageSize: page.PageSize, Total: page.Total},
	})
}

// Get handles GET /api/orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	order, err := h.orders.GetOrder(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// UpdateStatus handles POST /api/orders/:id/status.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	order, err := h.orders.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// Assign handles POST /api/orders/:id/assign.
func (h *OrdersHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.DeliveryID == "" {
		return apperrors.NewValidationError("delivery_id is required", nil)
	}
	order, err := h.orders.AssignDelivery(c.UserContext(), actor, c.Params("id"), req.DeliveryID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

func parseOrderQuery(c *fiber.Ctx) service.ListOrdersInput {
	input := service.ListOrdersInput{
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
		Page:        parseInt(c.Query("page"), 1),
		PageSize:    parseInt(c.Query("page_size"), 20),
	}
	for _, status := range splitList(c.Query("status")) {
		input.Statuses = append(input.Statuses, domain.OrderStatus(status))
	}
	return input
}

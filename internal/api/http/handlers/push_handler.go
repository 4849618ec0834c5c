package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tableflow/order-service/internal/api/dto"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/service"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

// PushHandler manages browser push subscriptions.
type PushHandler struct {
	push *service.PushService
}

// NewPushHandler constructs handler.
func NewPushHandler(push *service.PushService) *PushHandler {
	return &PushHandler{push: push}
}

// VAPIDKey handles GET /api/push/vapid-key.
func (h *PushHandler) VAPIDKey(c *fiber.Ctx) error {
	key := h.push.VAPIDPublicKey()
	if key == "" {
		return apperrors.NewUnavailable("push notifications are not configured", nil)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"public_key": key}})
}

// Subscribe handles PUT /api/push/subscriptions.
func (h *PushHandler) Subscribe(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.PushSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	sub, err := h.push.Subscribe(c.UserContext(), principal.User.ID, h.input(c, req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": subscriptionResponse(sub)})
}

// Unsubscribe handles DELETE /api/push/subscriptions.
func (h *PushHandler) Unsubscribe(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.UnsubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Endpoint == "" {
		return apperrors.NewValidationError("endpoint is required", nil)
	}
	if err := h.push.Unsubscribe(c.UserContext(), principal.User.ID, req.Endpoint); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Resubscribe handles POST /api/push/resubscribe.
func (h *PushHandler) Resubscribe(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.ResubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	sub, err := h.push.Resubscribe(c.UserContext(), principal.User.ID, req.OldEndpoint, h.input(c, req.Subscription))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": subscriptionResponse(sub)})
}

func (h *PushHandler) input(c *fiber.Ctx, req dto.PushSubscriptionRequest) service.SubscriptionInput {
	return service.SubscriptionInput{
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

func subscriptionResponse(sub *domain.PushSubscription) fiber.Map {
	return fiber.Map{
		"id":         sub.ID,
		"endpoint":   sub.Endpoint,
		"updated_at": sub.UpdatedAt,
	}
}

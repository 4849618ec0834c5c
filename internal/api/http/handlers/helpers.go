package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tableflow/order-service/internal/auth"
	"github.com/tableflow/order-service/internal/events"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

func principalFrom(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func actorFrom(c *fiber.Ctx) (events.Actor, error) {
	principal, err := principalFrom(c)
	if err != nil {
		return events.Actor{}, err
	}
	return events.Actor{UserID: principal.User.ID, Role: principal.User.Role}, nil
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

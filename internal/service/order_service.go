package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/repository"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

const (
	referencePrefix   = "TF"
	referenceAttempts = 3
	uniqueViolation   = "23505"
	// amountPlaces bounds the fractional digits accepted for rates and lengths.
	amountPlaces = 2
)

// OrderItemInput is one requested line.
type OrderItemInput struct {
	Label            string
	Size             string
	Quantity         int
	UnitRate         decimal.Decimal
	HasFrontPanel    bool
	FrontPanelLength *decimal.Decimal
}

// PlaceOrderInput is the order form. CustomerID is only honored for sellers
// placing an order on a customer's behalf.
type PlaceOrderInput struct {
	CustomerID  string
	Destination string
	Notes       string
	Items       []OrderItemInput
}

// ListOrdersInput carries caller-supplied list filters.
type ListOrdersInput struct {
	Statuses    []domain.OrderStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// OrderPage is one page of a scoped listing.
type OrderPage struct {
	Orders   []domain.Order
	Total    int
	Page     int
	PageSize int
}

// OrderService coordinates order placement and fulfilment.
type OrderService struct {
	orders     repository.OrderRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrderService constructs the service.
func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:     orders,
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// PlaceOrder creates a pending order for a customer, directly or through a seller.
func (s *OrderService) PlaceOrder(ctx context.Context, actor events.Actor, input PlaceOrderInput) (*domain.Order, error) {
	order := &domain.Order{
		Destination: strings.TrimSpace(input.Destination),
		Notes:       strings.TrimSpace(input.Notes),
		Status:      domain.OrderStatusPending,
	}

	switch actor.Role {
	case domain.RoleCustomer:
		order.CustomerID = actor.UserID
	case domain.RoleSeller:
		customerID := strings.TrimSpace(input.CustomerID)
		if customerID == "" {
			return nil, apperrors.NewValidationError("customer_id is required", nil)
		}
		customerID, ok := canonicalID(customerID)
		if !ok {
			return nil, apperrors.NewValidationError("invalid customer_id", map[string]any{"customer_id": input.CustomerID})
		}
		customer, err := s.users.GetByID(ctx, customerID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewValidationError("unknown customer", map[string]any{"customer_id": customerID})
			}
			return nil, apperrors.NewUnavailable("could not load customer", err)
		}
		if customer.Role != domain.RoleCustomer {
			return nil, apperrors.NewValidationError("orders are placed for customers", map[string]any{"customer_id": customerID})
		}
		sellerID := actor.UserID
		order.CustomerID = customer.ID
		order.SellerID = &sellerID
	default:
		return nil, apperrors.NewForbidden("only customers and sellers place orders")
	}

	items, err := validateItems(input.Items)
	if err != nil {
		return nil, err
	}
	if order.Destination == "" {
		return nil, apperrors.NewValidationError("destination is required", nil)
	}
	order.Items = items

	if err := s.createWithReference(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventOrderPlaced, order.ID, actor, events.OrderPlacedPayload{
		Reference:  order.Reference,
		CustomerID: order.CustomerID,
		SellerID:   order.SellerID,
		ItemCount:  len(order.Items),
	}))
	return order, nil
}

func (s *OrderService) createWithReference(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		order.Reference = NewOrderReference(s.now())
		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
			break
		}
	}
	return apperrors.NewUnavailable("could not place order", err)
}

// NewOrderReference formats TF-YYYYMMDD-XXXXXX.
func NewOrderReference(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", referencePrefix, at.UTC().Format("20060102"), suffix)
}

func validateItems(inputs []OrderItemInput) ([]domain.OrderLineItem, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError("an order needs at least one item", nil)
	}
	items := make([]domain.OrderLineItem, 0, len(inputs))
	for i, in := range inputs {
		details := map[string]any{}
		if strings.TrimSpace(in.Size) == "" {
			details["size"] = "required"
		}
		if in.Quantity < 1 {
			details["quantity"] = "must be at least 1"
		}
		if in.UnitRate.IsNegative() {
			details["unit_rate"] = "must not be negative"
		} else if !withinPlaces(in.UnitRate) {
			details["unit_rate"] = "at most 2 decimal places"
		}
		if in.FrontPanelLength != nil {
			if in.FrontPanelLength.IsNegative() {
				details["front_panel_length"] = "must not be negative"
			} else if !withinPlaces(*in.FrontPanelLength) {
				details["front_panel_length"] = "at most 2 decimal places"
			}
		}
		if len(details) > 0 {
			details["item"] = i
			return nil, apperrors.NewValidationError("invalid order item", details)
		}
		items = append(items, domain.OrderLineItem{
			Label:            strings.TrimSpace(in.Label),
			Size:             strings.TrimSpace(in.Size),
			Quantity:         in.Quantity,
			UnitRate:         in.UnitRate,
			HasFrontPanel:    in.HasFrontPanel,
			FrontPanelLength: in.FrontPanelLength,
		})
	}
	return items, nil
}

// canonicalID parses a row id and returns its canonical text form.
func canonicalID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func withinPlaces(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(amountPlaces))
}

// ListOrders returns the page of orders visible to actor.
func (s *OrderService) ListOrders(ctx context.Context, actor events.Actor, input ListOrdersInput) (*OrderPage, error) {
	filter, err := scopeFilter(actor)
	if err != nil {
		return nil, err
	}
	for _, status := range input.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	size := input.PageSize
	if size < 1 {
		size = 20
	}
	filter.Statuses = input.Statuses
	filter.CreatedFrom = input.CreatedFrom
	filter.CreatedTo = input.CreatedTo
	filter.Limit = size
	filter.Offset = (page - 1) * size

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable("could not list orders", err)
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, PageSize: size}, nil
}

func scopeFilter(actor events.Actor) (repository.OrderFilter, error) {
	id := actor.UserID
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return repository.OrderFilter{}, nil
	case domain.RoleSeller:
		return repository.OrderFilter{SellerID: &id}, nil
	case domain.RoleDelivery:
		return repository.OrderFilter{DeliveryID: &id}, nil
	case domain.RoleCustomer:
		return repository.OrderFilter{CustomerID: &id}, nil
	default:
		return repository.OrderFilter{}, apperrors.NewForbidden("role cannot view orders")
	}
}

// CanView reports whether actor may see order.
func CanView(actor events.Actor, order *domain.Order) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleSeller:
		return order.SellerID != nil && *order.SellerID == actor.UserID
	case domain.RoleDelivery:
		return order.DeliveryID != nil && *order.DeliveryID == actor.UserID
	case domain.RoleCustomer:
		return order.CustomerID == actor.UserID
	default:
		return false
	}
}

// GetOrder loads one order; orders outside the actor's scope read as missing.
func (s *OrderService) GetOrder(ctx context.Context, actor events.Actor, rawID string) (*domain.Order, error) {
	id, ok := canonicalID(rawID)
	if !ok {
		return nil, apperrors.NewNotFound("order", map[string]any{"id": rawID})
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("order", map[string]any{"id": id})
		}
		return nil, apperrors.NewUnavailable("could not load order", err)
	}
	if !CanView(actor, order) {
		return nil, apperrors.NewNotFound("order", map[string]any{"id": id})
	}
	return order, nil
}

// OrdersForBilling loads the given orders in request order, all of which must
// be visible to actor.
func (s *OrderService) OrdersForBilling(ctx context.Context, actor events.Actor, rawIDs []string) ([]domain.Order, error) {
	if len(rawIDs) == 0 {
		return nil, apperrors.NewValidationError("order_ids is required", nil)
	}
	ids := make([]string, 0, len(rawIDs))
	var malformed []string
	for _, raw := range rawIDs {
		id, ok := canonicalID(raw)
		if !ok {
			malformed = append(malformed, raw)
			continue
		}
		ids = append(ids, id)
	}
	if len(malformed) > 0 {
		return nil, apperrors.NewValidationError("invalid order_ids", map[string]any{"order_ids": malformed})
	}
	orders, err := s.orders.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.NewUnavailable("could not load orders", err)
	}

	found := make(map[string]bool, len(orders))
	for i := range orders {
		if !CanView(actor, &orders[i]) {
			continue
		}
		found[orders[i].ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewNotFound("order", map[string]any{"ids": missing})
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle within the actor's rights.
func (s *OrderService) UpdateStatus(ctx context.Context, actor events.Actor, id string, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}
	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatusChange(actor, order, next); err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": order.Status,
			"to":   next,
		})
	}

	previous := order.Status
	order.Status = next
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, apperrors.NewUnavailable("could not update order", err)
	}

	s.publish(ctx, events.NewEvent(events.EventOrderStatusChanged, order.ID, actor, events.OrderStatusChangedPayload{
		Reference:  order.Reference,
		CustomerID: order.CustomerID,
		OldStatus:  previous,
		NewStatus:  next,
	}))
	return order, nil
}

func authorizeStatusChange(actor events.Actor, order *domain.Order, next domain.OrderStatus) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return nil
	case domain.RoleDelivery:
		if next == domain.OrderStatusOutForDelivery || next == domain.OrderStatusDelivered {
			return nil
		}
		return apperrors.NewForbidden("delivery can only dispatch or complete orders")
	case domain.RoleCustomer:
		if next == domain.OrderStatusCancelled && order.Status == domain.OrderStatusPending {
			return nil
		}
		return apperrors.NewForbidden("customers can only cancel pending orders")
	default:
		return apperrors.NewForbidden("role cannot change order status")
	}
}

// AssignDelivery hands an order to a delivery user.
func (s *OrderService) AssignDelivery(ctx context.Context, actor events.Actor, id, rawDeliveryID string) (*domain.Order, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("only managers assign deliveries")
	}
	deliveryID, ok := canonicalID(rawDeliveryID)
	if !ok {
		return nil, apperrors.NewValidationError("invalid delivery_id", map[string]any{"delivery_id": rawDeliveryID})
	}
	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusDelivered || order.Status == domain.OrderStatusCancelled {
		return nil, apperrors.NewValidationError("order is closed", map[string]any{"status": order.Status})
	}

	courier, err := s.users.GetByID(ctx, deliveryID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("unknown delivery user", map[string]any{"delivery_id": deliveryID})
		}
		return nil, apperrors.NewUnavailable("could not load delivery user", err)
	}
	if courier.Role != domain.RoleDelivery || courier.Status != domain.UserStatusActive {
		return nil, apperrors.NewValidationError("user cannot take deliveries", map[string]any{"delivery_id": deliveryID})
	}

	order.DeliveryID = &courier.ID
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, apperrors.NewUnavailable("could not assign order", err)
	}

	s.publish(ctx, events.NewEvent(events.EventOrderAssigned, order.ID, actor, events.OrderAssignedPayload{
		Reference:  order.Reference,
		CustomerID: order.CustomerID,
		DeliveryID: courier.ID,
	}))
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/config"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/notify"
	"github.com/tableflow/order-service/internal/repository"
)

const deliveryTimeout = 30 * time.Second

// PushNotifier sends a payload to all of a user's browsers.
type PushNotifier interface {
	SendToUser(ctx context.Context, userID string, payload domain.PushPayload) (int, error)
}

// NotificationService turns domain events into push and email notifications.
// Deliveries run in the background so publishers never wait on the network.
type NotificationService struct {
	dispatcher events.Dispatcher
	push       PushNotifier
	mailer     notify.Mailer
	users      repository.UserRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
	publicURL  string

	wg sync.WaitGroup
}

// NotificationDependencies groups collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Push       PushNotifier
	Mailer     notify.Mailer
	Users      repository.UserRepository
	Logger     *zap.Logger
	Config     config.NotificationConfig
	PublicURL  string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = notify.NopMailer{}
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		push:       deps.Push,
		mailer:     mailer,
		users:      deps.Users,
		logger:     logger,
		cfg:        deps.Config,
		publicURL:  strings.TrimRight(deps.PublicURL, "/"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventOrderPlaced, n.handleOrderPlaced)
	n.dispatcher.Subscribe(events.EventOrderStatusChanged, n.handleOrderStatusChanged)
	n.dispatcher.Subscribe(events.EventOrderAssigned, n.handleOrderAssigned)
	n.dispatcher.Subscribe(events.EventSessionSignedUp, n.handleSignedUp)
	n.dispatcher.Subscribe(events.EventSessionSignedIn, n.handleSignedIn)
	n.dispatcher.Subscribe(events.EventAccountVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
}

// Wait blocks until in-flight deliveries finish.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

func (n *NotificationService) handleOrderPlaced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderPlacedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("OrderPlaced", zap.String("order_id", event.SubjectID), zap.String("reference", payload.Reference))

	link := n.orderLink(event.SubjectID)
	n.background(ctx, event, func(ctx context.Context) {
		n.pushTo(ctx, payload.CustomerID, domain.PushPayload{
			Title: "Order placed",
			Body:  fmt.Sprintf("We received order %s.", payload.Reference),
			Tag:   "order-" + event.SubjectID,
			URL:   link,
		})
		staff, err := n.users.ListByRoles(ctx, domain.RoleAdmin, domain.RoleManager)
		if err != nil {
			n.logger.Warn("load order reviewers failed", zap.Error(err))
		}
		for _, member := range staff {
			n.pushTo(ctx, member.ID, domain.PushPayload{
				Title: "New order",
				Body:  fmt.Sprintf("Order %s needs confirmation.", payload.Reference),
				Tag:   "order-" + event.SubjectID,
				URL:   link,
			})
		}
		n.emailOrderUpdate(ctx, payload.CustomerID, payload.Reference, "Your order has been placed.", link)
	})
	return nil
}

func (n *NotificationService) handleOrderStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("OrderStatusChanged",
		zap.String("order_id", event.SubjectID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))

	link := n.orderLink(event.SubjectID)
	message := fmt.Sprintf("Order %s is now %s.", payload.Reference, StatusLabel(payload.NewStatus))
	n.background(ctx, event, func(ctx context.Context) {
		n.pushTo(ctx, payload.CustomerID, domain.PushPayload{
			Title: "Order update",
			Body:  message,
			Tag:   "order-" + event.SubjectID,
			URL:   link,
		})
		n.emailOrderUpdate(ctx, payload.CustomerID, payload.Reference, message, link)
	})
	return nil
}

func (n *NotificationService) handleOrderAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("OrderAssigned", zap.String("order_id", event.SubjectID), zap.String("delivery_id", payload.DeliveryID))

	n.background(ctx, event, func(ctx context.Context) {
		n.pushTo(ctx, payload.DeliveryID, domain.PushPayload{
			Title: "New delivery",
			Body:  fmt.Sprintf("Order %s was assigned to you.", payload.Reference),
			Tag:   "delivery-" + event.SubjectID,
			URL:   n.orderLink(event.SubjectID),
		})
	})
	return nil
}

func (n *NotificationService) handleSignedUp(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionPayload)
	n.background(ctx, event, func(ctx context.Context) {
		n.pushTo(ctx, event.SubjectID, domain.PushPayload{
			Title: "Welcome to TableFlow",
			Body:  fmt.Sprintf("Your account is ready, %s.", payload.Name),
			Tag:   "session",
			URL:   n.publicURL + "/",
		})
	})
	return nil
}

func (n *NotificationService) handleSignedIn(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionPayload)
	n.background(ctx, event, func(ctx context.Context) {
		n.pushTo(ctx, event.SubjectID, domain.PushPayload{
			Title: "Signed in",
			Body:  fmt.Sprintf("Welcome back, %s.", payload.Name),
			Tag:   "session",
			URL:   n.publicURL + "/",
		})
	})
	return nil
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountTokenPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.background(ctx, event, func(ctx context.Context) {
		n.sendEmail(ctx, "verify", "Confirm your TableFlow account", payload.Email, map[string]any{
			"Name":      payload.Name,
			"Link":      n.publicURL + "/verify?token=" + payload.Token,
			"ExpiresAt": payload.ExpiresAt,
		})
	})
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountTokenPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.background(ctx, event, func(ctx context.Context) {
		n.sendEmail(ctx, "reset", "Reset your TableFlow password", payload.Email, map[string]any{
			"Name": payload.Name,
			"Link": n.publicURL + "/reset-password?token=" + payload.Token,
		})
	})
	return nil
}

func (n *NotificationService) background(ctx context.Context, event events.Event, fn func(context.Context)) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("notification delivery panicked", zap.String("event_type", string(event.Type)), zap.Any("panic", r))
			}
		}()
		fn(ctx)
	}()
}

func (n *NotificationService) pushTo(ctx context.Context, userID string, payload domain.PushPayload) {
	if n.push == nil || userID == "" {
		return
	}
	delivered, err := n.push.SendToUser(ctx, userID, payload)
	if err != nil {
		n.logger.Warn("push failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	n.logger.Debug("push sent", zap.String("user_id", userID), zap.Int("delivered", delivered))
}

func (n *NotificationService) emailOrderUpdate(ctx context.Context, customerID, reference, message, link string) {
	if !n.cfg.EmailEnabled() || n.users == nil {
		return
	}
	customer, err := n.users.GetByID(ctx, customerID)
	if err != nil {
		n.logger.Warn("load customer for email failed", zap.String("customer_id", customerID), zap.Error(err))
		return
	}
	n.sendEmail(ctx, "order", "Order "+reference, customer.Email, map[string]any{
		"Name":      customer.Name,
		"Message":   message,
		"Link":      link,
		"Reference": reference,
	})
}

func (n *NotificationService) sendEmail(ctx context.Context, template, subject, to string, data map[string]any) {
	if !n.cfg.EmailEnabled() {
		n.logger.Debug("email disabled", zap.String("template", template))
		return
	}
	body, err := notify.RenderEmail(template, data)
	if err != nil {
		n.logger.Error("render email failed", zap.String("template", template), zap.Error(err))
		return
	}
	if err := n.mailer.Send(ctx, notify.Email{To: []string{to}, Subject: subject, HTML: body}); err != nil {
		n.logger.Warn("send email failed", zap.String("template", template), zap.Error(err))
	}
}

func (n *NotificationService) orderLink(orderID string) string {
	return n.publicURL + "/orders/" + orderID
}

// StatusLabel renders a status for people.
func StatusLabel(status domain.OrderStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

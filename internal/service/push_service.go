package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/notify"
	"github.com/tableflow/order-service/internal/observability"
	"github.com/tableflow/order-service/internal/repository"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

// SubscriptionInput mirrors the browser PushSubscription JSON.
type SubscriptionInput struct {
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

// PushService manages subscriptions and relays payloads to them.
type PushService struct {
	subs      repository.PushSubscriptionRepository
	sender    notify.PushSender
	publicKey string
	icon      string
	badge     string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// PushDependencies groups collaborators.
type PushDependencies struct {
	Subscriptions  repository.PushSubscriptionRepository
	Sender         notify.PushSender
	VAPIDPublicKey string
	Icon           string
	Badge          string
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewPushService constructs the service. A nil Sender disables delivery but
// still records subscriptions.
func NewPushService(deps PushDependencies) *PushService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushService{
		subs:      deps.Subscriptions,
		sender:    deps.Sender,
		publicKey: deps.VAPIDPublicKey,
		icon:      deps.Icon,
		badge:     deps.Badge,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// VAPIDPublicKey is handed to browsers for PushManager.subscribe.
func (s *PushService) VAPIDPublicKey() string {
	return s.publicKey
}

// Subscribe registers or refreshes a subscription for userID.
func (s *PushService) Subscribe(ctx context.Context, userID string, input SubscriptionInput) (*domain.PushSubscription, error) {
	if err := validateSubscription(input); err != nil {
		return nil, err
	}
	sub := &domain.PushSubscription{
		UserID:    userID,
		Endpoint:  strings.TrimSpace(input.Endpoint),
		P256dh:    strings.TrimSpace(input.P256dh),
		Auth:      strings.TrimSpace(input.Auth),
		UserAgent: input.UserAgent,
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, apperrors.NewUnavailable("could not save subscription", err)
	}
	return sub, nil
}

// Unsubscribe removes one of userID's endpoints.
func (s *PushService) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if err := s.subs.DeleteForUser(ctx, userID, strings.TrimSpace(endpoint)); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("subscription", nil)
		}
		return apperrors.NewUnavailable("could not remove subscription", err)
	}
	return nil
}

// Resubscribe swaps an expired endpoint for the browser's replacement.
func (s *PushService) Resubscribe(ctx context.Context, userID, oldEndpoint string, input SubscriptionInput) (*domain.PushSubscription, error) {
	sub, err := s.Subscribe(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	oldEndpoint = strings.TrimSpace(oldEndpoint)
	if oldEndpoint != "" && oldEndpoint != sub.Endpoint {
		if err := s.subs.DeleteForUser(ctx, userID, oldEndpoint); err != nil && !apperrors.IsNotFound(err) {
			s.logger.Warn("drop replaced subscription failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return sub, nil
}

// SendToUser pushes payload to every subscription of userID and returns the
// number delivered. Expired endpoints are deleted.
func (s *PushService) SendToUser(ctx context.Context, userID string, payload domain.PushPayload) (int, error) {
	if s.sender == nil {
		return 0, nil
	}
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if payload.Icon == "" {
		payload.Icon = s.icon
	}
	if payload.Badge == "" {
		payload.Badge = s.badge
	}

	delivered := 0
	for _, sub := range subs {
		err := s.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
			s.metrics.RecordPush("delivered")
		case errors.Is(err, notify.ErrSubscriptionGone):
			s.metrics.RecordPush("expired")
			if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				s.logger.Warn("delete expired subscription failed", zap.String("user_id", userID), zap.Error(err))
			}
		default:
			s.metrics.RecordPush("failed")
			s.logger.Warn("push delivery failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return delivered, nil
}

func validateSubscription(input SubscriptionInput) error {
	details := map[string]any{}
	endpoint, err := url.Parse(strings.TrimSpace(input.Endpoint))
	if err != nil || (endpoint.Scheme != "https" && endpoint.Scheme != "http") || endpoint.Host == "" {
		details["endpoint"] = "must be an absolute URL"
	}
	if strings.TrimSpace(input.P256dh) == "" {
		details["p256dh"] = "required"
	}
	if strings.TrimSpace(input.Auth) == "" {
		details["auth"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid push subscription", details)
	}
	return nil
}

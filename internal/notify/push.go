package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/config"
	"github.com/tableflow/order-service/internal/domain"
)

// ErrSubscriptionGone means the push service no longer knows the endpoint;
// the subscription must be dropped and the browser must re-subscribe.
var ErrSubscriptionGone = errors.New("push subscription expired")

const (
	pushTimeout      = 10 * time.Second
	pushRetryWaitMax = 5 * time.Second
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=push.go -destination=../mocks/push_sender.go -package=mocks

// PushSender delivers a payload to one browser subscription.
type PushSender interface {
	Send(ctx context.Context, sub domain.PushSubscription, payload domain.PushPayload) error
}

// WebPushSender signs requests with VAPID keys and retries transient failures.
type WebPushSender struct {
	client     *http.Client
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

// NewWebPushSender builds a sender from configuration.
func NewWebPushSender(cfg config.NotificationConfig, logger *zap.Logger) *WebPushSender {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.PushRetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = pushRetryWaitMax
	retryClient.HTTPClient.Timeout = pushTimeout
	retryClient.Logger = retryLogger{logger: logger}
	// Hand the final response back instead of an error so 4xx/5xx statuses can be inspected.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &WebPushSender{
		client:     retryClient.StandardClient(),
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.VAPIDSubject,
		ttl:        cfg.PushTTLSeconds,
	}
}

// Send encrypts payload for sub and posts it to the push service.
func (s *WebPushSender) Send(ctx context.Context, sub domain.PushSubscription, payload domain.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		TTL:             s.ttl,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service responded %d", resp.StatusCode)
	}
	return nil
}

type retryLogger struct {
	logger *zap.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log().Error(msg, fields(keysAndValues)...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log().Debug(msg, fields(keysAndValues)...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log().Debug(msg, fields(keysAndValues)...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log().Warn(msg, fields(keysAndValues)...)
}

func (l retryLogger) log() *zap.Logger {
	if l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	return out
}

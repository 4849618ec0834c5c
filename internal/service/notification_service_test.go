package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/config"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/mocks"
	"github.com/tableflow/order-service/internal/notify"
)

type pushCall struct {
	userID  string
	payload domain.PushPayload
}

type capturePush struct {
	mu    sync.Mutex
	calls []pushCall
}

func (c *capturePush) SendToUser(_ context.Context, userID string, payload domain.PushPayload) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, pushCall{userID: userID, payload: payload})
	return 1, nil
}

func (c *capturePush) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.userID
	}
	return out
}

func newNotificationFixture(t *testing.T, cfg config.NotificationConfig) (*NotificationService, events.Dispatcher, *capturePush, *mocks.MockUserRepository, *mocks.MockMailer) {
	ctrl := gomock.NewController(t)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	push := &capturePush{}
	users := mocks.NewMockUserRepository(ctrl)
	mailer := mocks.NewMockMailer(ctrl)
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Push:       push,
		Mailer:     mailer,
		Users:      users,
		Config:     cfg,
		PublicURL:  "https://app.example.com/",
	})
	svc.RegisterHandlers()
	return svc, dispatcher, push, users, mailer
}

func TestStatusChangePushesCustomer(t *testing.T) {
	svc, dispatcher, push, _, _ := newNotificationFixture(t, config.NotificationConfig{})

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventOrderStatusChanged, "o-1", managerActor, events.OrderStatusChangedPayload{
		Reference:  "TF-20240517-ABCDEF",
		CustomerID: "cust-1",
		OldStatus:  domain.OrderStatusReady,
		NewStatus:  domain.OrderStatusOutForDelivery,
	}))
	require.NoError(t, err)
	svc.Wait()

	require.Len(t, push.calls, 1)
	assert.Equal(t, "cust-1", push.calls[0].userID)
	assert.Equal(t, "Order TF-20240517-ABCDEF is now out for delivery.", push.calls[0].payload.Body)
	assert.Equal(t, "https://app.example.com/orders/o-1", push.calls[0].payload.URL)
}

func TestOrderPlacedNotifiesCustomerAndReviewers(t *testing.T) {
	svc, dispatcher, push, users, mailer := newNotificationFixture(t, config.NotificationConfig{SMTPHost: "smtp.example.com"})

	users.EXPECT().ListByRoles(gomock.Any(), domain.RoleAdmin, domain.RoleManager).Return([]domain.User{{ID: "mgr-1"}}, nil)
	users.EXPECT().GetByID(gomock.Any(), "cust-1").Return(&domain.User{ID: "cust-1", Name: "Ana", Email: "ana@example.com"}, nil)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email notify.Email) error {
		assert.Equal(t, []string{"ana@example.com"}, email.To)
		assert.True(t, strings.Contains(email.HTML, "TF-20240517-ABCDEF"))
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventOrderPlaced, "o-1", customerActor, events.OrderPlacedPayload{
		Reference:  "TF-20240517-ABCDEF",
		CustomerID: "cust-1",
		ItemCount:  2,
	}))
	require.NoError(t, err)
	svc.Wait()

	assert.ElementsMatch(t, []string{"cust-1", "mgr-1"}, push.recipients())
}

func TestSignedUpAndSignedInEachNotifyOnce(t *testing.T) {
	svc, dispatcher, push, _, _ := newNotificationFixture(t, config.NotificationConfig{})

	payload := events.SessionPayload{SessionID: "s-1", Role: domain.RoleCustomer, Name: "Ana"}
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSessionSignedUp, "u-1", customerActor, payload)))
	svc.Wait()
	require.Len(t, push.calls, 1)
	assert.Equal(t, "Welcome to TableFlow", push.calls[0].payload.Title)

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSessionSignedIn, "u-1", customerActor, payload)))
	svc.Wait()
	require.Len(t, push.calls, 2)
	assert.Equal(t, "Signed in", push.calls[1].payload.Title)
}

func TestVerificationEmailCarriesLink(t *testing.T) {
	svc, dispatcher, _, _, mailer := newNotificationFixture(t, config.NotificationConfig{SMTPHost: "smtp.example.com"})

	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email notify.Email) error {
		assert.Contains(t, email.HTML, "https://app.example.com/verify?token=tok-1")
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventAccountVerificationRequested, "u-1", customerActor, events.AccountTokenPayload{
		Name:  "Ana",
		Email: "ana@example.com",
		Token: "tok-1",
	})))
	svc.Wait()
}

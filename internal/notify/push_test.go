package notify

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/config"
	"github.com/tableflow/order-service/internal/domain"
)

func testSubscription(t *testing.T, endpoint string) domain.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	return domain.PushSubscription{
		UserID:   "u-1",
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(secret),
	}
}

func testSender(t *testing.T) *WebPushSender {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return NewWebPushSender(config.NotificationConfig{
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		VAPIDSubject:    "mailto:ops@example.com",
		PushTTLSeconds:  60,
		PushRetryMax:    0,
	}, zap.NewNop())
}

func TestWebPushSenderDelivers(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := testSender(t).Send(context.Background(), testSubscription(t, srv.URL+"/push/abc"), domain.PushPayload{
		Title: "Order confirmed",
		Body:  "TF-20240101-ABCDEF is confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWebPushSenderReportsGoneSubscriptions(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		err := testSender(t).Send(context.Background(), testSubscription(t, srv.URL), domain.PushPayload{Title: "x"})
		assert.ErrorIs(t, err, ErrSubscriptionGone, "status %d", status)
		srv.Close()
	}
}

func TestWebPushSenderSurfacesOtherFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testSender(t).Send(context.Background(), testSubscription(t, srv.URL), domain.PushPayload{Title: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubscriptionGone)
}

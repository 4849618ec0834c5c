package auth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionListener receives every new state of a watched session.
type SessionListener func(SessionState)

// SessionPublisher announces session changes (sign-in, sign-out, expiry).
type SessionPublisher interface {
	PublishSession(ctx context.Context, key string, state SessionState)
}

// SessionHub is an in-process observer registry keyed by session id.
type SessionHub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]SessionListener
}

// NewSessionHub creates an empty hub.
func NewSessionHub() *SessionHub {
	return &SessionHub{listeners: make(map[string]map[uint64]SessionListener)}
}

// Subscribe registers fn for key and returns the matching unsubscribe func.
func (h *SessionHub) Subscribe(key string, fn SessionListener) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.listeners[key] == nil {
		h.listeners[key] = make(map[uint64]SessionListener)
	}
	h.listeners[key][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[key], id)
			if len(h.listeners[key]) == 0 {
				delete(h.listeners, key)
			}
		})
	}
}

// Publish delivers state to the listeners of key on the caller's goroutine.
func (h *SessionHub) Publish(key string, state SessionState) {
	h.mu.RLock()
	fns := make([]SessionListener, 0, len(h.listeners[key]))
	for _, fn := range h.listeners[key] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

// PublishSession implements SessionPublisher for single-instance deployments.
func (h *SessionHub) PublishSession(_ context.Context, key string, state SessionState) {
	h.Publish(key, state)
}

// Listeners reports how many listeners watch key.
func (h *SessionHub) Listeners(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[key])
}

type sessionMessage struct {
	Key   string       `json:"key"`
	State SessionState `json:"state"`
}

// RedisSessionRelay fans session changes out to every instance through a
// Redis pub/sub channel; each instance re-publishes into its local hub.
type RedisSessionRelay struct {
	client  *redis.Client
	channel string
	hub     *SessionHub
	logger  *zap.Logger
}

// NewRedisSessionRelay wires a relay. A nil client degrades to local publishing.
func NewRedisSessionRelay(client *redis.Client, channel string, hub *SessionHub, logger *zap.Logger) *RedisSessionRelay {
	return &RedisSessionRelay{client: client, channel: channel, hub: hub, logger: logger}
}

// PublishSession sends the change through Redis, falling back to the local hub.
func (r *RedisSessionRelay) PublishSession(ctx context.Context, key string, state SessionState) {
	if r.client == nil {
		r.hub.Publish(key, state)
		return
	}
	payload, err := json.Marshal(sessionMessage{Key: key, State: state})
	if err == nil {
		err = r.client.Publish(ctx, r.channel, payload).Err()
	}
	if err != nil {
		r.logger.Warn("session relay publish failed; delivering locally", zap.Error(err))
		r.hub.Publish(key, state)
	}
}

// Run consumes the channel until ctx is cancelled.
func (r *RedisSessionRelay) Run(ctx context.Context) {
	if r.client == nil {
		return
	}
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var decoded sessionMessage
			if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
				r.logger.Warn("session relay: bad message", zap.Error(err))
				continue
			}
			r.hub.Publish(decoded.Key, decoded.State)
		}
	}
}

package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/auth"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

const defaultKeepAlive = 25 * time.Second

// AccessHandler answers UI route checks for the current viewer.
type AccessHandler struct {
	routes    *auth.RouteTable
	hub       *auth.SessionHub
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewAccessHandler constructs handler.
func NewAccessHandler(routes *auth.RouteTable, hub *auth.SessionHub, logger *zap.Logger) *AccessHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessHandler{routes: routes, hub: hub, keepAlive: defaultKeepAlive, logger: logger}
}

// Check handles GET /api/access?path=.
func (h *AccessHandler) Check(c *fiber.Ctx) error {
	location := c.Query("path")
	requirement, err := h.lookup(location)
	if err != nil {
		return err
	}
	viewer := auth.ViewerFromContext(c)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"path":     location,
			"viewer":   viewer,
			"decision": auth.Evaluate(viewer, requirement, location),
		},
	})
}

// Watch handles GET /api/access/watch?path= as a server-sent event stream.
// A decision is emitted for the current session and again whenever it
// changes. The stream ends once the session is gone: for anonymous viewers
// after the first event, otherwise on sign-out or token expiry.
func (h *AccessHandler) Watch(c *fiber.Ctx) error {
	location := c.Query("path")
	requirement, err := h.lookup(location)
	if err != nil {
		return err
	}

	feed := newDecisionFeed()
	stop := func() {}
	var expiry <-chan time.Time
	var expiryTimer *time.Timer

	principal, ok := auth.PrincipalFromContext(c)
	if ok {
		state := auth.SessionState{Viewer: principal.Viewer()}
		stop = auth.Watch(h.hub, principal.SessionID, state, requirement, location, feed.push)
		expiryTimer = time.NewTimer(time.Until(principal.ExpiresAt))
		expiry = expiryTimer.C
	} else {
		feed.push(auth.Evaluate(auth.AnonymousViewer(), requirement, location))
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	keepAlive := h.keepAlive
	logger := h.logger
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stop()
		if expiryTimer != nil {
			defer expiryTimer.Stop()
		}
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case decision := <-feed.ch:
				if err := writeDecision(w, decision); err != nil {
					logger.Debug("access stream closed", zap.Error(err))
					return
				}
				if !ok || decision.Kind == auth.DecisionRedirectToLogin {
					return
				}
			case <-expiry:
				_ = writeDecision(w, auth.Evaluate(auth.AnonymousViewer(), requirement, location))
				return
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func (h *AccessHandler) lookup(location string) (auth.RouteRequirement, error) {
	if location == "" {
		return auth.RouteRequirement{}, apperrors.NewValidationError("path is required", nil)
	}
	requirement, found := h.routes.Lookup(location)
	if !found {
		return auth.RouteRequirement{}, apperrors.NewNotFound("route", map[string]any{"path": location})
	}
	return requirement, nil
}

func writeDecision(w *bufio.Writer, decision auth.Decision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: decision\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// decisionFeed keeps only the newest undelivered decision so session
// publishers never block on a slow client.
type decisionFeed struct {
	mu sync.Mutex
	ch chan auth.Decision
}

func newDecisionFeed() *decisionFeed {
	return &decisionFeed{ch: make(chan auth.Decision, 1)}
}

func (f *decisionFeed) push(decision auth.Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
	default:
	}
	f.ch <- decision
}

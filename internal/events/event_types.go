package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/tableflow/order-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderAssigned      EventType = "order.assigned"

	EventSessionSignedUp  EventType = "session.signed_up"
	EventSessionSignedIn  EventType = "session.signed_in"
	EventSessionSignedOut EventType = "session.signed_out"

	EventAccountVerificationRequested EventType = "account.verification_requested"
	EventPasswordResetRequested       EventType = "account.password_reset_requested"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services. SubjectID is the order
// id for order events and the user id for session events.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, subjectID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// OrderPlacedPayload payload.
type OrderPlacedPayload struct {
	Reference  string  `json:"reference"`
	CustomerID string  `json:"customer_id"`
	SellerID   *string `json:"seller_id,omitempty"`
	ItemCount  int     `json:"item_count"`
}

// OrderStatusChangedPayload payload.
type OrderStatusChangedPayload struct {
	Reference  string             `json:"reference"`
	CustomerID string             `json:"customer_id"`
	OldStatus  domain.OrderStatus `json:"old_status"`
	NewStatus  domain.OrderStatus `json:"new_status"`
}

// OrderAssignedPayload payload.
type OrderAssignedPayload struct {
	Reference  string `json:"reference"`
	CustomerID string `json:"customer_id"`
	DeliveryID string `json:"delivery_id"`
}

// SessionPayload describes a session lifecycle change.
type SessionPayload struct {
	SessionID string      `json:"session_id"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name"`
}

// AccountTokenPayload carries a single-use token to be mailed to the account owner.
type AccountTokenPayload struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates fulfilment states for an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusInProduction   OrderStatus = "in_production"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusInProduction:   {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	if _, ok := orderTransitions[s]; ok {
		return true
	}
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is the aggregate placed by a customer (directly or through a seller).
type Order struct {
	ID          string
	Reference   string
	CustomerID  string
	SellerID    *string
	DeliveryID  *string
	Destination string
	Status      OrderStatus
	Notes       string
	Items       []OrderLineItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLineItem is one table/furniture line. Read-only once the order is placed.
type OrderLineItem struct {
	ID               string
	OrderID          string
	Label            string
	Size             string
	Quantity         int
	UnitRate         decimal.Decimal
	HasFrontPanel    bool
	FrontPanelLength *decimal.Decimal
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tableflow/order-service/internal/domain"
)

// CreateOrderRequest payload. CustomerID is required when a seller places
// the order and ignored for customers.
type CreateOrderRequest struct {
	CustomerID  string             `json:"customer_id"`
	Destination string             `json:"destination"`
	Notes       string             `json:"notes"`
	Items       []OrderItemRequest `json:"items"`
}

// OrderItemRequest describes one table line.
type OrderItemRequest struct {
	Label            string           `json:"label"`
	Size             string           `json:"size"`
	Quantity         int              `json:"quantity"`
	UnitRate         decimal.Decimal  `json:"unit_rate"`
	HasFrontPanel    bool             `json:"has_front_panel"`
	FrontPanelLength *decimal.Decimal `json:"front_panel_length"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// AssignDeliveryRequest payload.
type AssignDeliveryRequest struct {
	DeliveryID string `json:"delivery_id"`
}

// OrderResponse provides full order info.
type OrderResponse struct {
	ID          string              `json:"id"`
	Reference   string              `json:"reference"`
	CustomerID  string              `json:"customer_id"`
	SellerID    *string             `json:"seller_id"`
	DeliveryID  *string             `json:"delivery_id"`
	Destination string              `json:"destination"`
	Status      domain.OrderStatus  `json:"status"`
	Notes       string              `json:"notes,omitempty"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// OrderItemResponse line item.
type OrderItemResponse struct {
	ID               string           `json:"id"`
	Label            string           `json:"label"`
	Size             string           `json:"size"`
	Quantity         int              `json:"quantity"`
	UnitRate         decimal.Decimal  `json:"unit_rate"`
	HasFrontPanel    bool             `json:"has_front_panel"`
	FrontPanelLength *decimal.Decimal `json:"front_panel_length"`
}

// OrderListMeta carries paging info for list responses.
type OrderListMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// NewOrderResponse maps a domain order.
func NewOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:               item.ID,
			Label:            item.Label,
			Size:             item.Size,
			Quantity:         item.Quantity,
			UnitRate:         item.UnitRate,
			HasFrontPanel:    item.HasFrontPanel,
			FrontPanelLength: item.FrontPanelLength,
		})
	}
	return OrderResponse{
		ID:          order.ID,
		Reference:   order.Reference,
		CustomerID:  order.CustomerID,
		SellerID:    order.SellerID,
		DeliveryID:  order.DeliveryID,
		Destination: order.Destination,
		Status:      order.Status,
		Notes:       order.Notes,
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tableflow/order-service/internal/domain"
)

func length(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestIsNonStandardSize(t *testing.T) {
	tests := []struct {
		size string
		want bool
	}{
		{"24x36", false},
		{" 24x36\t", false},
		{"24X36", true},
		{"24 x 36", true},
		{"72x96", false},
		{"99x99", true},
		{"", true},
		{"24x37", true},
		{"round-36", true},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNonStandardSize(tt.size))
		})
	}
}

func TestStandardCatalogSize(t *testing.T) {
	assert.Len(t, StandardSizes(), 32)
}

func TestHasFrontPanel(t *testing.T) {
	tests := []struct {
		name string
		item domain.OrderLineItem
		want bool
	}{
		{"declared with length", domain.OrderLineItem{HasFrontPanel: true, FrontPanelLength: length(5)}, true},
		{"declared without length", domain.OrderLineItem{HasFrontPanel: true}, false},
		{"declared with zero length", domain.OrderLineItem{HasFrontPanel: true, FrontPanelLength: length(0)}, false},
		{"length but not declared", domain.OrderLineItem{FrontPanelLength: length(5)}, false},
		{"nothing", domain.OrderLineItem{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasFrontPanel(tt.item))
		})
	}
}

func TestCalculateExtraFees(t *testing.T) {
	tests := []struct {
		name       string
		item       domain.OrderLineItem
		wantFee    int64
		wantLabels []string
	}{
		{
			name:       "standard size without panel",
			item:       domain.OrderLineItem{Size: "24x36"},
			wantFee:    0,
			wantLabels: []string{},
		},
		{
			name:       "non-standard size only",
			item:       domain.OrderLineItem{Size: "99x99"},
			wantFee:    1000,
			wantLabels: []string{LabelCustomWidth},
		},
		{
			name:       "panel only",
			item:       domain.OrderLineItem{Size: "24x36", HasFrontPanel: true, FrontPanelLength: length(5)},
			wantFee:    1000,
			wantLabels: []string{LabelPanel},
		},
		{
			name:       "both stack",
			item:       domain.OrderLineItem{Size: "99x99", HasFrontPanel: true, FrontPanelLength: length(5)},
			wantFee:    2000,
			wantLabels: []string{"C/W", "Panel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateExtraFees(tt.item)
			assert.True(t, decimal.NewFromInt(tt.wantFee).Equal(got.ExtraFee), "fee = %s", got.ExtraFee)
			assert.Equal(t, tt.wantLabels, got.Labels)
			assert.Equal(t, tt.wantFee > 0, got.Applies())
		})
	}
}

func TestCalculateExtraFeesIsPure(t *testing.T) {
	item := domain.OrderLineItem{Size: "99x99", HasFrontPanel: true, FrontPanelLength: length(5)}
	first := CalculateExtraFees(item)
	second := CalculateExtraFees(item)
	assert.Equal(t, first, second)
}

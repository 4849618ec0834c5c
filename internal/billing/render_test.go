package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableflow/order-service/internal/domain"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"2000", "2,000"},
		{"1234567.5", "1,234,567.50"},
		{"12.345", "12.35"},
		{"-12500", "-12,500"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.in)
			assert.Equal(t, tt.want, FormatAmount(amount))
			assert.Equal(t, tt.in, amount.String(), "formatting must not mutate the amount")
		})
	}
}

func TestNewAmountFormatterUnknownLocale(t *testing.T) {
	f := NewAmountFormatter("not a locale")
	assert.Equal(t, "2,000", f.Format(decimal.NewFromInt(2000)))
}

func TestHTMLRendererPages(t *testing.T) {
	renderer, err := NewHTMLRenderer(nil)
	require.NoError(t, err)

	items := make([]domain.OrderLineItem, 12)
	for i := range items {
		items[i] = domain.OrderLineItem{Label: "Table", Size: "24x36", Quantity: 1, UnitRate: decimal.NewFromInt(12500)}
	}
	bill := NewBill(Header{
		Number:      "B-42",
		IssuedAt:    time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		BilledTo:    "Acme <Furniture>",
		CompanyName: "TableFlow",
	}, []domain.Order{{Reference: "TF-9", Destination: "Pune", Items: items}}, 10)

	html, err := renderer.RenderString(bill)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(html, `class="sheet"`))
	assert.Contains(t, html, "Page 1 of 2")
	assert.Contains(t, html, "Page 2 of 2")
	assert.Equal(t, 8, strings.Count(html, `class="blank"`))
	assert.Contains(t, html, "12,500")
	assert.Contains(t, html, "Grand total: 12 pcs, 150,000")
	assert.Contains(t, html, "Acme &lt;Furniture&gt;")
	assert.Contains(t, html, "15 Oct 2026")
}

package billing

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableflow/order-service/internal/domain"
)

func numberedRows(n int) []BillRow {
	rows := make([]BillRow, n)
	for i := range rows {
		rows[i] = BillRow{
			Quantity:       1,
			ItemLabel:      fmt.Sprintf("row-%02d", i),
			OrderReference: "TF-1",
			Rate:           decimal.NewFromInt(100),
			Amount:         decimal.NewFromInt(100),
		}
	}
	return rows
}

func TestPaginateEmpty(t *testing.T) {
	pages := Paginate(nil, 10)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Index)
	assert.Equal(t, 1, pages[0].TotalPages)
	assert.Len(t, pages[0].Rows, 10)
	assert.Empty(t, pages[0].Items())
	for _, row := range pages[0].Rows {
		assert.True(t, row.Blank)
	}
}

func TestPaginateChunksAndPads(t *testing.T) {
	rows := numberedRows(23)
	pages := Paginate(rows, 10)
	require.Len(t, pages, 3)

	sizes := []int{len(pages[0].Items()), len(pages[1].Items()), len(pages[2].Items())}
	assert.Equal(t, []int{10, 10, 3}, sizes)

	var flattened []BillRow
	for i, page := range pages {
		assert.Equal(t, i+1, page.Index)
		assert.Equal(t, 3, page.TotalPages)
		assert.Len(t, page.Rows, 10)
		flattened = append(flattened, page.Items()...)
	}
	assert.Equal(t, rows, flattened)
	assert.True(t, pages[2].Rows[9].Blank)
}

func TestPaginateExactMultiple(t *testing.T) {
	pages := Paginate(numberedRows(20), 10)
	require.Len(t, pages, 2)
	assert.Equal(t, 10, pages[1].Filled)
}

func TestPaginateFallsBackToDefaultCapacity(t *testing.T) {
	pages := Paginate(numberedRows(11), 0)
	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Rows, DefaultPageCapacity)
}

func TestPaginateIsPure(t *testing.T) {
	rows := numberedRows(13)
	assert.Equal(t, Paginate(rows, 10), Paginate(rows, 10))
}

func TestAggregateSkipsSurchargeQuantity(t *testing.T) {
	rows := []BillRow{
		{Quantity: 2, Amount: decimal.NewFromInt(5000)},
		{Quantity: 2, Amount: decimal.NewFromInt(4000), IsSurchargeRow: true},
		{Quantity: 1, Amount: decimal.RequireFromString("1250.50")},
		{Blank: true},
	}
	totals := Aggregate(rows)
	assert.Equal(t, 3, totals.TotalQuantity)
	assert.True(t, decimal.RequireFromString("10250.50").Equal(totals.TotalAmount))
}

func TestAggregateIsExact(t *testing.T) {
	rows := make([]BillRow, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, BillRow{Quantity: 1, Amount: decimal.RequireFromString("0.1")})
	}
	assert.Equal(t, "1", Aggregate(rows).TotalAmount.String())
}

func TestBuildRowsExpandsSurcharges(t *testing.T) {
	lines := []BillableLine{
		{
			Item:           domain.OrderLineItem{Label: "Table", Size: "24x36", Quantity: 2, UnitRate: decimal.NewFromInt(2500)},
			OrderReference: "TF-A",
			Destination:    "Pune",
		},
		{
			Item: domain.OrderLineItem{
				Label: "Table", Size: "99x99", Quantity: 3, UnitRate: decimal.NewFromInt(3000),
				HasFrontPanel: true, FrontPanelLength: length(5),
			},
			OrderReference: "TF-B",
			Destination:    "Mumbai",
		},
	}

	rows := BuildRows(lines)
	require.Len(t, rows, 3)

	assert.Equal(t, "Table 24x36", rows[0].ItemLabel)
	assert.True(t, decimal.NewFromInt(5000).Equal(rows[0].Amount))
	assert.False(t, rows[0].IsSurchargeRow)

	assert.Equal(t, "TF-B", rows[1].OrderReference)
	assert.True(t, decimal.NewFromInt(9000).Equal(rows[1].Amount))

	assert.True(t, rows[2].IsSurchargeRow)
	assert.Equal(t, "Extra (C/W + Panel)", rows[2].ItemLabel)
	assert.Equal(t, "Mumbai", rows[2].Destination)
	assert.True(t, decimal.NewFromInt(2000).Equal(rows[2].Rate))
	assert.True(t, decimal.NewFromInt(6000).Equal(rows[2].Amount))

	totals := Aggregate(rows)
	assert.Equal(t, 5, totals.TotalQuantity)
	assert.True(t, decimal.NewFromInt(20000).Equal(totals.TotalAmount))
}

func TestNewBillFromOrders(t *testing.T) {
	orders := []domain.Order{
		{Reference: "TF-1", Destination: "Pune", Items: []domain.OrderLineItem{
			{Size: "30x48", Quantity: 1, UnitRate: decimal.NewFromInt(1500)},
		}},
		{Reference: "TF-2", Destination: "Nashik", Items: []domain.OrderLineItem{
			{Size: "31x49", Quantity: 4, UnitRate: decimal.NewFromInt(1000)},
		}},
	}

	bill := NewBill(Header{Number: "B-1"}, orders, 10)
	require.Len(t, bill.Rows, 3)
	require.Len(t, bill.Pages, 1)
	assert.Equal(t, 3, bill.Pages[0].Filled)
	assert.Equal(t, 5, bill.Totals.TotalQuantity)
	assert.True(t, decimal.NewFromInt(9500).Equal(bill.Totals.TotalAmount))
	assert.Equal(t, bill.Totals, bill.Pages[0].Subtotal())
}

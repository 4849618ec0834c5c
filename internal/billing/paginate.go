package billing

import "github.com/shopspring/decimal"

// DefaultPageCapacity is the number of rows a printed bill page holds.
const DefaultPageCapacity = 10

// BillPage is one fixed-capacity page. Rows always has exactly capacity
// entries; the trailing Filled..capacity entries are blank padding.
type BillPage struct {
	Index      int
	TotalPages int
	Rows       []BillRow
	Filled     int
}

// Items returns the non-padding rows of the page.
func (p BillPage) Items() []BillRow {
	return p.Rows[:p.Filled]
}

// Subtotal aggregates the page's own rows.
func (p BillPage) Subtotal() Totals {
	return Aggregate(p.Items())
}

// Totals holds the bill sums.
type Totals struct {
	TotalAmount   decimal.Decimal
	TotalQuantity int
}

// Paginate chunks rows into pages of at most capacity rows, preserving order,
// and pads each page with blank rows. No rows yields one blank page.
func Paginate(rows []BillRow, capacity int) []BillPage {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}

	total := (len(rows) + capacity - 1) / capacity
	if total < 1 {
		total = 1
	}

	pages := make([]BillPage, 0, total)
	for i := 0; i < total; i++ {
		start := i * capacity
		end := start + capacity
		if end > len(rows) {
			end = len(rows)
		}

		padded := make([]BillRow, capacity)
		filled := copy(padded, rows[start:end])
		for j := filled; j < capacity; j++ {
			padded[j] = BillRow{Blank: true}
		}

		pages = append(pages, BillPage{
			Index:      i + 1,
			TotalPages: total,
			Rows:       padded,
			Filled:     filled,
		})
	}
	return pages
}

// Aggregate sums amounts over every row and quantities over base rows only,
// so surcharge rows never double-count physical pieces.
func Aggregate(rows []BillRow) Totals {
	totals := Totals{TotalAmount: decimal.Zero}
	for _, row := range rows {
		if row.Blank {
			continue
		}
		totals.TotalAmount = totals.TotalAmount.Add(row.Amount)
		if !row.IsSurchargeRow {
			totals.TotalQuantity += row.Quantity
		}
	}
	return totals
}

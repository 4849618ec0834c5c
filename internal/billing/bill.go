package billing

import (
	"time"

	"github.com/tableflow/order-service/internal/domain"
)

// Header carries the printed bill heading.
type Header struct {
	Number      string
	IssuedAt    time.Time
	BilledTo    string
	CompanyName string
}

// Bill is a fully computed, paginated invoice ready for rendering. It is
// rebuilt on every request and never persisted.
type Bill struct {
	Header Header
	Rows   []BillRow
	Pages  []BillPage
	Totals Totals
}

// NewBill computes rows, pages and totals for the given orders.
func NewBill(header Header, orders []domain.Order, capacity int) Bill {
	rows := BuildRows(LinesFromOrders(orders))
	return Bill{
		Header: header,
		Rows:   rows,
		Pages:  Paginate(rows, capacity),
		Totals: Aggregate(rows),
	}
}

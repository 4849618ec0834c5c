package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tableflow/order-service/internal/billing"
)

// InvoiceRequest payload shared by the JSON, HTML and PDF endpoints.
type InvoiceRequest struct {
	OrderIDs []string `json:"order_ids"`
	BilledTo string   `json:"billed_to"`
	Number   string   `json:"number"`
}

// BillResponse is the computed bill.
type BillResponse struct {
	Number      string             `json:"number"`
	IssuedAt    time.Time          `json:"issued_at"`
	BilledTo    string             `json:"billed_to"`
	CompanyName string             `json:"company_name"`
	Pages       []BillPageResponse `json:"pages"`
	Totals      TotalsResponse     `json:"totals"`
}

// BillPageResponse is one printed page without its blank padding.
type BillPageResponse struct {
	Index      int               `json:"index"`
	TotalPages int               `json:"total_pages"`
	Rows       []BillRowResponse `json:"rows"`
	BlankRows  int               `json:"blank_rows"`
	Subtotal   TotalsResponse    `json:"subtotal"`
}

// BillRowResponse is one printed line.
type BillRowResponse struct {
	Quantity       int             `json:"quantity"`
	Item           string          `json:"item"`
	OrderReference string          `json:"order_reference"`
	Destination    string          `json:"destination"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
	Surcharge      bool            `json:"surcharge"`
}

// TotalsResponse holds bill sums.
type TotalsResponse struct {
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

// NewBillResponse maps a computed bill.
func NewBillResponse(bill *billing.Bill) BillResponse {
	pages := make([]BillPageResponse, 0, len(bill.Pages))
	for _, page := range bill.Pages {
		items := page.Items()
		rows := make([]BillRowResponse, 0, len(items))
		for _, row := range items {
			rows = append(rows, BillRowResponse{
				Quantity:       row.Quantity,
				Item:           row.ItemLabel,
				OrderReference: row.OrderReference,
				Destination:    row.Destination,
				Rate:           row.Rate,
				Amount:         row.Amount,
				Surcharge:      row.IsSurchargeRow,
			})
		}
		pages = append(pages, BillPageResponse{
			Index:      page.Index,
			TotalPages: page.TotalPages,
			Rows:       rows,
			BlankRows:  len(page.Rows) - page.Filled,
			Subtotal:   newTotals(page.Subtotal()),
		})
	}
	return BillResponse{
		Number:      bill.Header.Number,
		IssuedAt:    bill.Header.IssuedAt,
		BilledTo:    bill.Header.BilledTo,
		CompanyName: bill.Header.CompanyName,
		Pages:       pages,
		Totals:      newTotals(bill.Totals),
	}
}

func newTotals(t billing.Totals) TotalsResponse {
	return TotalsResponse{Amount: t.TotalAmount, Quantity: t.TotalQuantity}
}

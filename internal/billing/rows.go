package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tableflow/order-service/internal/domain"
)

// BillableLine is a line item together with the order it belongs to.
type BillableLine struct {
	Item           domain.OrderLineItem
	OrderReference string
	Destination    string
}

// BillRow is one printed line of a bill. Blank rows only pad pages.
type BillRow struct {
	Quantity       int
	ItemLabel      string
	OrderReference string
	Destination    string
	Rate           decimal.Decimal
	Amount         decimal.Decimal
	IsSurchargeRow bool
	Blank          bool
}

// LinesFromOrders flattens orders into billable lines, keeping order and item order.
func LinesFromOrders(orders []domain.Order) []BillableLine {
	var lines []BillableLine
	for _, order := range orders {
		for _, item := range order.Items {
			lines = append(lines, BillableLine{
				Item:           item,
				OrderReference: order.Reference,
				Destination:    order.Destination,
			})
		}
	}
	return lines
}

// BuildRows expands each line into a base row and, when a surcharge applies,
// a surcharge row placed right after it.
func BuildRows(lines []BillableLine) []BillRow {
	rows := make([]BillRow, 0, len(lines))
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Item.Quantity))
		rows = append(rows, BillRow{
			Quantity:       line.Item.Quantity,
			ItemLabel:      itemLabel(line.Item),
			OrderReference: line.OrderReference,
			Destination:    line.Destination,
			Rate:           line.Item.UnitRate,
			Amount:         line.Item.UnitRate.Mul(qty),
		})

		fees := CalculateExtraFees(line.Item)
		if !fees.Applies() {
			continue
		}
		rows = append(rows, BillRow{
			Quantity:       line.Item.Quantity,
			ItemLabel:      "Extra (" + strings.Join(fees.Labels, " + ") + ")",
			OrderReference: line.OrderReference,
			Destination:    line.Destination,
			Rate:           fees.ExtraFee,
			Amount:         fees.ExtraFee.Mul(qty),
			IsSurchargeRow: true,
		})
	}
	return rows
}

func itemLabel(item domain.OrderLineItem) string {
	label := strings.TrimSpace(item.Label)
	if label == "" {
		label = "Table"
	}
	if size := strings.TrimSpace(item.Size); size != "" {
		label += " " + size
	}
	return label
}

package billing

import (
	"github.com/shopspring/decimal"

	"github.com/tableflow/order-service/internal/domain"
)

const (
	LabelCustomWidth = "C/W"
	LabelPanel       = "Panel"
)

// SurchargeUnit is the fixed amount added per applicable surcharge.
var SurchargeUnit = decimal.NewFromInt(1000)

// FeeDetermination is the surcharge outcome for a single line item.
type FeeDetermination struct {
	ExtraFee decimal.Decimal
	Labels   []string
}

// Applies reports whether any surcharge was added.
func (f FeeDetermination) Applies() bool {
	return len(f.Labels) > 0
}

// HasFrontPanel reports whether the item declares a front panel with a
// positive length. A missing or zero length means no panel.
func HasFrontPanel(item domain.OrderLineItem) bool {
	if !item.HasFrontPanel || item.FrontPanelLength == nil {
		return false
	}
	return item.FrontPanelLength.IsPositive()
}

// CalculateExtraFees applies the custom-width and front-panel surcharges.
// The two checks are independent and stack.
func CalculateExtraFees(item domain.OrderLineItem) FeeDetermination {
	fees := FeeDetermination{ExtraFee: decimal.Zero, Labels: []string{}}
	if IsNonStandardSize(item.Size) {
		fees.ExtraFee = fees.ExtraFee.Add(SurchargeUnit)
		fees.Labels = append(fees.Labels, LabelCustomWidth)
	}
	if HasFrontPanel(item) {
		fees.ExtraFee = fees.ExtraFee.Add(SurchargeUnit)
		fees.Labels = append(fees.Labels, LabelPanel)
	}
	return fees
}

package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AmountFormatter renders amounts with locale grouping. It never changes the
// amount itself; rounding to two places happens on the rendered copy.
type AmountFormatter struct {
	printer *message.Printer
	decimal string
}

// NewAmountFormatter builds a formatter for a BCP 47 locale, falling back to English.
func NewAmountFormatter(locale string) *AmountFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	printer := message.NewPrinter(tag)

	sep := "."
	if sample := []rune(printer.Sprintf("%.1f", 0.5)); len(sample) == 3 {
		sep = string(sample[1])
	}
	return &AmountFormatter{printer: printer, decimal: sep}
}

// Format renders amount as e.g. "12,500" or "1,234.50".
func (f *AmountFormatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	abs := rounded.Abs()
	whole := abs.Truncate(0)

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(f.printer.Sprintf("%d", whole.IntPart()))

	if frac := abs.Sub(whole); !frac.IsZero() {
		b.WriteString(f.decimal)
		b.WriteString(frac.StringFixed(2)[2:])
	}
	return b.String()
}

var defaultFormatter = NewAmountFormatter("en")

// FormatAmount formats with the English grouping rules.
func FormatAmount(amount decimal.Decimal) string {
	return defaultFormatter.Format(amount)
}

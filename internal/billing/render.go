package billing

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/bill.html
var templateFS embed.FS

// HTMLRenderer turns a Bill into a printable HTML document with one
// fixed-height sheet per page.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded template.
func NewHTMLRenderer(formatter *AmountFormatter) (*HTMLRenderer, error) {
	if formatter == nil {
		formatter = defaultFormatter
	}
	funcs := template.FuncMap{
		"amount": func(d decimal.Decimal) string { return formatter.Format(d) },
		"date":   func(t time.Time) string { return t.Format("02 Jan 2006") },
		"isLast": func(p BillPage) bool { return p.Index == p.TotalPages },
	}
	tmpl, err := template.New("bill.html").Funcs(funcs).ParseFS(templateFS, "templates/bill.html")
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

// Render writes the bill to w.
func (r *HTMLRenderer) Render(w io.Writer, bill Bill) error {
	return r.tmpl.Execute(w, bill)
}

// RenderString is Render into a string.
func (r *HTMLRenderer) RenderString(bill Bill) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, bill); err != nil {
		return "", err
	}
	return buf.String(), nil
}

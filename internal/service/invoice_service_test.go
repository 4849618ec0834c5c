package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tableflow/order-service/internal/billing"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/mocks"
)

type stubOrderSource struct {
	orders []domain.Order
	err    error
}

func (s stubOrderSource) OrdersForBilling(context.Context, events.Actor, []string) ([]domain.Order, error) {
	return s.orders, s.err
}

type stubPrinter struct {
	html string
	err  error
}

func (p *stubPrinter) Print(_ context.Context, html string) ([]byte, error) {
	p.html = html
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4"), nil
}

func billableOrders(items int) []domain.Order {
	order := domain.Order{ID: "o-1", Reference: "TF-20240517-AAAAAA", CustomerID: "cust-1", Destination: "Depot"}
	for i := 0; i < items; i++ {
		order.Items = append(order.Items, domain.OrderLineItem{Size: "24x36", Quantity: 1, UnitRate: decimal.NewFromInt(12500)})
	}
	return []domain.Order{order}
}

func newInvoiceService(t *testing.T, source BillingOrderSource, printer BillPrinter) (*InvoiceService, *mocks.MockUserRepository) {
	t.Helper()
	renderer, err := billing.NewHTMLRenderer(nil)
	require.NoError(t, err)
	users := mocks.NewMockUserRepository(gomock.NewController(t))
	svc := NewInvoiceService(InvoiceDependencies{
		Orders:      source,
		Users:       users,
		Renderer:    renderer,
		Printer:     printer,
		Capacity:    10,
		CompanyName: "TableFlow",
	})
	svc.now = func() time.Time { return time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC) }
	return svc, users
}

func TestInvoiceBuildPaginatesAndNamesCustomer(t *testing.T) {
	svc, users := newInvoiceService(t, stubOrderSource{orders: billableOrders(12)}, nil)
	users.EXPECT().GetByID(gomock.Any(), "cust-1").Return(&domain.User{ID: "cust-1", Name: "Acme Ltd"}, nil)

	bill, err := svc.Build(context.Background(), managerActor, InvoiceRequest{OrderIDs: []string{"o-1", "o-1"}})
	require.NoError(t, err)

	assert.Equal(t, "Acme Ltd", bill.Header.BilledTo)
	assert.Regexp(t, `^INV-20240517-[0-9A-F]{6}$`, bill.Header.Number)
	assert.Len(t, bill.Pages, 2)
	assert.Equal(t, 12, bill.Totals.TotalQuantity)
	assert.True(t, decimal.NewFromInt(150000).Equal(bill.Totals.TotalAmount))
}

func TestInvoiceBuildKeepsExplicitHeader(t *testing.T) {
	svc, _ := newInvoiceService(t, stubOrderSource{orders: billableOrders(1)}, nil)

	bill, err := svc.Build(context.Background(), sellerActor, InvoiceRequest{OrderIDs: []string{"o-1"}, BilledTo: "Front desk", Number: "B-7"})
	require.NoError(t, err)
	assert.Equal(t, "Front desk", bill.Header.BilledTo)
	assert.Equal(t, "B-7", bill.Header.Number)
}

func TestInvoiceForbiddenForCustomers(t *testing.T) {
	svc, _ := newInvoiceService(t, stubOrderSource{}, nil)
	_, err := svc.Build(context.Background(), customerActor, InvoiceRequest{OrderIDs: []string{"o-1"}})
	requireCode(t, err, "FORBIDDEN")
}

func TestInvoiceRenderPDF(t *testing.T) {
	printer := &stubPrinter{}
	svc, _ := newInvoiceService(t, stubOrderSource{orders: billableOrders(3)}, printer)

	pdf, bill, err := svc.RenderPDF(context.Background(), managerActor, InvoiceRequest{OrderIDs: []string{"o-1"}, BilledTo: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Len(t, bill.Pages, 1)
	assert.Contains(t, printer.html, "Page 1 of 1")
}

func TestInvoiceRenderPDFPrinterFailure(t *testing.T) {
	svc, _ := newInvoiceService(t, stubOrderSource{orders: billableOrders(1)}, &stubPrinter{err: errors.New("chrome missing")})

	_, _, err := svc.RenderPDF(context.Background(), managerActor, InvoiceRequest{OrderIDs: []string{"o-1"}, BilledTo: "Acme"})
	requireCode(t, err, "SERVICE_UNAVAILABLE")
}

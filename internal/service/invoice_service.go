package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/billing"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/repository"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

// BillingOrderSource loads the orders a caller may bill.
type BillingOrderSource interface {
	OrdersForBilling(ctx context.Context, actor events.Actor, ids []string) ([]domain.Order, error)
}

// BillPrinter converts rendered bill HTML to PDF.
type BillPrinter interface {
	Print(ctx context.Context, html string) ([]byte, error)
}

// InvoiceRequest selects the orders to bill.
type InvoiceRequest struct {
	OrderIDs []string
	BilledTo string
	Number   string
}

// InvoiceService builds bills on demand; nothing is persisted.
type InvoiceService struct {
	orders      BillingOrderSource
	users       repository.UserRepository
	renderer    *billing.HTMLRenderer
	printer     BillPrinter
	capacity    int
	companyName string
	logger      *zap.Logger
	now         func() time.Time
}

// InvoiceDependencies groups collaborators.
type InvoiceDependencies struct {
	Orders      BillingOrderSource
	Users       repository.UserRepository
	Renderer    *billing.HTMLRenderer
	Printer     BillPrinter
	Capacity    int
	CompanyName string
	Logger      *zap.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(deps InvoiceDependencies) *InvoiceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		orders:      deps.Orders,
		users:       deps.Users,
		renderer:    deps.Renderer,
		printer:     deps.Printer,
		capacity:    deps.Capacity,
		companyName: deps.CompanyName,
		logger:      logger,
		now:         time.Now,
	}
}

// Build computes the paginated bill for the requested orders.
func (s *InvoiceService) Build(ctx context.Context, actor events.Actor, req InvoiceRequest) (*billing.Bill, error) {
	if !billingRoles.Contains(actor.Role) {
		return nil, apperrors.NewForbidden("role cannot issue bills")
	}
	ids := dedupe(req.OrderIDs)
	orders, err := s.orders.OrdersForBilling(ctx, actor, ids)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	header := billing.Header{
		Number:      strings.TrimSpace(req.Number),
		IssuedAt:    issuedAt,
		BilledTo:    strings.TrimSpace(req.BilledTo),
		CompanyName: s.companyName,
	}
	if header.Number == "" {
		header.Number = newBillNumber(issuedAt)
	}
	if header.BilledTo == "" {
		header.BilledTo = s.soleCustomerName(ctx, orders)
	}

	bill := billing.NewBill(header, orders, s.capacity)
	return &bill, nil
}

// RenderHTML builds and renders the bill as a printable document.
func (s *InvoiceService) RenderHTML(ctx context.Context, actor events.Actor, req InvoiceRequest) (string, *billing.Bill, error) {
	bill, err := s.Build(ctx, actor, req)
	if err != nil {
		return "", nil, err
	}
	html, err := s.renderer.RenderString(*bill)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return html, bill, nil
}

// RenderPDF builds, renders and prints the bill.
func (s *InvoiceService) RenderPDF(ctx context.Context, actor events.Actor, req InvoiceRequest) ([]byte, *billing.Bill, error) {
	if s.printer == nil {
		return nil, nil, apperrors.NewUnavailable("pdf printing is not configured", nil)
	}
	html, bill, err := s.RenderHTML(ctx, actor, req)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := s.printer.Print(ctx, html)
	if err != nil {
		s.logger.Warn("bill print failed", zap.String("bill_number", bill.Header.Number), zap.Error(err))
		return nil, nil, apperrors.NewUnavailable("could not print bill", err)
	}
	return pdf, bill, nil
}

var billingRoles = domain.NewRoleSet(domain.RoleAdmin, domain.RoleManager, domain.RoleSeller)

func (s *InvoiceService) soleCustomerName(ctx context.Context, orders []domain.Order) string {
	if len(orders) == 0 || s.users == nil {
		return ""
	}
	customerID := orders[0].CustomerID
	for _, order := range orders[1:] {
		if order.CustomerID != customerID {
			return ""
		}
	}
	customer, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		s.logger.Debug("bill customer lookup failed", zap.String("customer_id", customerID), zap.Error(err))
		return ""
	}
	return customer.Name
}

func newBillNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("INV-%s-%s", at.UTC().Format("20060102"), suffix)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tableflow/order-service/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderFilter captures list parameters. The scope fields are combined with
// AND; services fill them from the caller's role.
type OrderFilter struct {
	CustomerID  *string
	SellerID    *string
	DeliveryID  *string
	Statuses    []domain.OrderStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

//go:generate go run go.uber.org/mock/mockgen@latest -source=order_repository.go -destination=../mocks/order_repository.go -package=mocks

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

var orderColumns = []string{
	"id", "reference", "customer_id", "seller_id", "delivery_id",
	"destination", "status", "notes", "created_at", "updated_at",
}

// Create inserts the order and its line items in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO orders (reference, customer_id, seller_id, delivery_id, destination, status, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		order.Reference,
		order.CustomerID,
		order.SellerID,
		order.DeliveryID,
		order.Destination,
		order.Status,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return err
	}

	if len(order.Items) > 0 {
		insert := psql.Insert("order_items").Columns(
			"id", "order_id", "position", "label", "size", "quantity",
			"unit_rate", "has_front_panel", "front_panel_length",
		)
		for i := range order.Items {
			item := &order.Items[i]
			item.ID = uuid.NewString()
			item.OrderID = order.ID
			insert = insert.Values(
				item.ID,
				item.OrderID,
				i,
				item.Label,
				item.Size,
				item.Quantity,
				item.UnitRate,
				item.HasFrontPanel,
				nullDecimal(item.FrontPanelLength),
			)
		}
		sql, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Update persists status and assignment. Line items are immutable once placed.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	const query = `
        UPDATE orders SET status=$1, delivery_id=$2, destination=$3, notes=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		order.Status,
		order.DeliveryID,
		order.Destination,
		order.Notes,
		order.ID,
	).Scan(&order.UpdatedAt)
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &orders[0], nil
}

// GetByIDs loads orders with items, returned in the order ids were given.
// Unknown ids are skipped.
func (r *orderRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql, args, err := psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	orders, _, err := r.queryOrders(ctx, sql, args, false)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Order, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
	}
	ordered := make([]domain.Order, 0, len(orders))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		order, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, order)
	}
	return ordered, nil
}

// List returns one page of orders matching filter plus the total match count.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error) {
	columns := append(append([]string{}, orderColumns...), "COUNT(*) OVER() AS total_count")
	stmt := applyOrderFilter(psql.Select(columns...).From("orders"), filter)

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	stmt = stmt.OrderBy("created_at DESC", "id").Limit(uint64(limit)).Offset(uint64(offset))

	sql, args, err := stmt.ToSql()
	if err != nil {
		return nil, 0, err
	}
	return r.queryOrders(ctx, sql, args, true)
}

func applyOrderFilter(stmt sq.SelectBuilder, f OrderFilter) sq.SelectBuilder {
	if f.CustomerID != nil {
		stmt = stmt.Where(sq.Eq{"customer_id": *f.CustomerID})
	}
	if f.SellerID != nil {
		stmt = stmt.Where(sq.Eq{"seller_id": *f.SellerID})
	}
	if f.DeliveryID != nil {
		stmt = stmt.Where(sq.Eq{"delivery_id": *f.DeliveryID})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		stmt = stmt.Where(sq.Eq{"status": statuses})
	}
	if f.CreatedFrom != nil {
		stmt = stmt.Where(sq.GtOrEq{"created_at": *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		stmt = stmt.Where(sq.LtOrEq{"created_at": *f.CreatedTo})
	}
	return stmt
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *orderRepository) queryOrders(ctx context.Context, sql string, args []any, withCount bool) ([]domain.Order, int, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		orders []domain.Order
		total  int
	)
	for rows.Next() {
		var order domain.Order
		dest := []any{
			&order.ID,
			&order.Reference,
			&order.CustomerID,
			&order.SellerID,
			&order.DeliveryID,
			&order.Destination,
			&order.Status,
			&order.Notes,
			&order.CreatedAt,
			&order.UpdatedAt,
		}
		if withCount {
			dest = append(dest, &total)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		index[order.ID] = i
	}

	sql, args, err := psql.Select(
		"id", "order_id", "label", "size", "quantity",
		"unit_rate::text", "has_front_panel", "front_panel_length::text",
	).From("order_items").Where(sq.Eq{"order_id": ids}).OrderBy("order_id", "position").ToSql()
	if err != nil {
		return err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item        domain.OrderLineItem
			rate        string
			panelLength *string
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Label,
			&item.Size,
			&item.Quantity,
			&rate,
			&item.HasFrontPanel,
			&panelLength,
		); err != nil {
			return err
		}
		if item.UnitRate, err = decimal.NewFromString(rate); err != nil {
			return fmt.Errorf("order item %s unit rate: %w", item.ID, err)
		}
		if panelLength != nil {
			length, err := decimal.NewFromString(*panelLength)
			if err != nil {
				return fmt.Errorf("order item %s front panel length: %w", item.ID, err)
			}
			item.FrontPanelLength = &length
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

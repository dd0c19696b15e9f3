package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `
	id, order_number, customer_id, status, payment_status, currency, total_amount,
	ship_street, ship_city, ship_state, ship_postal_code, ship_country,
	notes, inventory_committed, version, created_at, updated_at`

type orderRepository struct {
	q querier
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	s := order.Snapshot()
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		s.ID, s.OrderNumber, s.CustomerID, string(s.Status), string(s.PaymentStatus),
		s.TotalAmount.Currency(), s.TotalAmount.Amount(),
		s.ShippingAddress.Street, s.ShippingAddress.City, s.ShippingAddress.State,
		s.ShippingAddress.PostalCode, s.ShippingAddress.Country,
		s.Notes, s.InventoryCommitted, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return domain.PersistenceError("insert order", err)
	}

	return r.insertItems(ctx, s)
}

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	snap, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.PersistenceError("select order", err)
	}

	items, err := r.loadItems(ctx, []string{snap.ID})
	if err != nil {
		return nil, err
	}
	snap.Items = items[snap.ID]
	return domain.RestoreOrder(snap), nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter = filter.Normalize()
	where, args := orderWhere(filter)

	page := domain.OrderPage{PageNumber: filter.PageNumber, PageSize: filter.PageSize}
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&page.TotalCount); err != nil {
		return domain.OrderPage{}, domain.PersistenceError("count orders", err)
	}
	if page.TotalCount == 0 {
		return page, nil
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		orderColumns, where, orderBy(filter), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return domain.OrderPage{}, domain.PersistenceError("list orders", err)
	}
	snaps := make([]domain.OrderSnapshot, 0, filter.PageSize)
	ids := make([]string, 0, filter.PageSize)
	for rows.Next() {
		snap, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return domain.OrderPage{}, domain.PersistenceError("scan order row", err)
		}
		snaps = append(snaps, snap)
		ids = append(ids, snap.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.OrderPage{}, domain.PersistenceError("iterate order rows", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return domain.OrderPage{}, err
	}
	for _, snap := range snaps {
		snap.Items = items[snap.ID]
		page.Orders = append(page.Orders, domain.RestoreOrder(snap))
	}
	return page, nil
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	s := order.Snapshot()
	tag, err := r.q.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    total_amount = $3,
		    notes = $4,
		    inventory_committed = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7
		  AND version = $8
	`,
		string(s.Status), string(s.PaymentStatus), s.TotalAmount.Amount(), s.Notes,
		s.InventoryCommitted, s.UpdatedAt, s.ID, s.Version,
	)
	if err != nil {
		return domain.PersistenceError("update order", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, s.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	// Позиции меняются только в Pending, поэтому проще переписать их целиком.
	if s.Status == domain.OrderStatusPending {
		if _, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, s.ID); err != nil {
			return domain.PersistenceError("delete order items", err)
		}
		return r.insertItems(ctx, s)
	}
	return nil
}

func (r *orderRepository) insertItems(ctx context.Context, s domain.OrderSnapshot) error {
	if len(s.Items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for idx, item := range s.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, line_no, product_id, product_name, unit_price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, s.ID, idx+1, item.ProductID, item.ProductName, item.UnitPrice.Amount(), item.Quantity)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return domain.PersistenceError("insert order items", err)
	}
	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItemSnapshot, error) {
	result := make(map[string][]domain.OrderItemSnapshot, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT i.order_id, i.product_id, i.product_name, i.unit_price, o.currency, i.quantity
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.line_no
	`, orderIDs)
	if err != nil {
		return nil, domain.PersistenceError("load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID  string
			item     domain.OrderItemSnapshot
			price    decimal.Decimal
			currency string
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &price, &currency, &item.Quantity); err != nil {
			return nil, domain.PersistenceError("scan order item", err)
		}
		item.UnitPrice = domain.NewMoney(price, currency)
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("iterate order items", err)
	}
	return result, nil
}

func (r *orderRepository) exists(ctx context.Context, orderID string) (bool, error) {
	var found bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&found); err != nil {
		return false, domain.PersistenceError("check order exists", err)
	}
	return found, nil
}

func scanOrder(row pgx.Row) (domain.OrderSnapshot, error) {
	var (
		s             domain.OrderSnapshot
		status        string
		paymentStatus string
		currency      string
		total         decimal.Decimal
	)
	err := row.Scan(
		&s.ID, &s.OrderNumber, &s.CustomerID, &status, &paymentStatus, &currency, &total,
		&s.ShippingAddress.Street, &s.ShippingAddress.City, &s.ShippingAddress.State,
		&s.ShippingAddress.PostalCode, &s.ShippingAddress.Country,
		&s.Notes, &s.InventoryCommitted, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.OrderSnapshot{}, err
	}
	s.Status = domain.OrderStatus(status)
	s.PaymentStatus = domain.PaymentStatus(paymentStatus)
	s.TotalAmount = domain.NewMoney(total, strings.TrimSpace(currency))
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func orderWhere(f domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CustomerID != 0 {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", string(f.PaymentStatus))
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	if f.OrderNumber != "" {
		add("order_number ILIKE '%%' || $%d || '%%'", f.OrderNumber)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(f domain.OrderFilter) string {
	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	switch f.SortBy {
	case domain.SortByTotal:
		return "total_amount " + dir + ", id"
	case domain.SortByStatus:
		return `CASE status
			WHEN 'pending' THEN 0 WHEN 'confirmed' THEN 1 WHEN 'shipped' THEN 2
			WHEN 'delivered' THEN 3 WHEN 'cancelled' THEN 4 ELSE 5 END ` + dir + ", id"
	default:
		return "created_at " + dir + ", id"
	}
}

var _ domain.OrderRepository = (*orderRepository)(nil)

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

const productColumns = `id, name, description, price, currency, inventory, category_id, is_active, created_at, updated_at`

type productRepository struct {
	q querier
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := r.q.QueryRow(ctx, `
		INSERT INTO products (name, description, price, currency, inventory, category_id, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+productColumns,
		product.Name, product.Description, product.Price.Amount(), product.Price.Currency(),
		product.Inventory, product.CategoryID, product.IsActive,
	)
	created, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, domain.PersistenceError("insert product", err)
	}
	return created, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	product, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, domain.PersistenceError("select product", err)
	}
	return product, nil
}

func (r *productRepository) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, domain.PersistenceError("select products", err)
	}
	products, err := pgx.CollectRows(rows, collectProduct)
	if err != nil {
		return nil, domain.PersistenceError("scan products", err)
	}
	for _, product := range products {
		result[product.ID] = product
	}
	return result, nil
}

func (r *productRepository) List(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	conds := []string{"is_active"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if name := strings.TrimSpace(query.Name); name != "" {
		add("name ILIKE '%%' || $%d || '%%'", name)
	}
	if query.CategoryID != 0 {
		add("category_id = $%d", query.CategoryID)
	}
	if query.MinPrice != nil {
		add("price >= $%d", *query.MinPrice)
	}
	if query.MaxPrice != nil {
		add("price <= $%d", *query.MaxPrice)
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE `+strings.Join(conds, " AND ")+` ORDER BY name, id`,
		args...)
	if err != nil {
		return nil, domain.PersistenceError("list products", err)
	}
	products, err := pgx.CollectRows(rows, collectProduct)
	if err != nil {
		return nil, domain.PersistenceError("scan products", err)
	}
	return products, nil
}

// AdjustInventory выполняет условное изменение одним UPDATE: строка не обновится,
// если остаток ушёл бы в минус, поэтому параллельные списания не пересекаются.
func (r *productRepository) AdjustInventory(ctx context.Context, id int64, delta int) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var inventory int
	err := r.q.QueryRow(ctx, `
		UPDATE products
		SET inventory = inventory + $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND inventory + $1 >= 0
		RETURNING inventory
	`, delta, id).Scan(&inventory)
	if err == nil {
		return inventory, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.PersistenceError("adjust inventory", err)
	}

	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	return current.Inventory, domain.ErrInsufficientInventory
}

func (r *productRepository) SetInventory(ctx context.Context, id int64, quantity int) (int, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("%w: inventory must be non-negative", domain.ErrInvalidArgument)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var previous int
	err := r.q.QueryRow(ctx, `
		UPDATE products p
		SET inventory = $1,
		    updated_at = NOW()
		FROM (SELECT id, inventory FROM products WHERE id = $2 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING old.inventory
	`, quantity, id).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, domain.PersistenceError("set inventory", err)
	}
	return previous, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p        domain.Product
		price    decimal.Decimal
		currency string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &currency, &p.Inventory,
		&p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	p.Price = domain.NewMoney(price, strings.TrimSpace(currency))
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func collectProduct(row pgx.CollectableRow) (domain.Product, error) {
	return scanProduct(row)
}

var _ domain.ProductRepository = (*productRepository)(nil)

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerRepository struct {
	q querier
}

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.q.QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, customer.FirstName, customer.LastName, customer.Email, customer.Phone).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		return domain.Customer{}, domain.PersistenceError("insert customer", err)
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return customer, nil
}

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c domain.Customer
	err := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, domain.PersistenceError("select customer", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)

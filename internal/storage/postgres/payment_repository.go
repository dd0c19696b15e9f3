package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type paymentRepository struct {
	q querier
}

func (r *paymentRepository) Create(ctx context.Context, p domain.Payment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var processedAt *time.Time
	if !p.ProcessedAt.IsZero() {
		processedAt = &p.ProcessedAt
	}

	if _, err := r.q.Exec(ctx, `
		INSERT INTO payments (
			id, order_id, amount, currency, method, status,
			transaction_id, failure_reason, created_at, processed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		p.ID, p.OrderID, p.Amount.Amount(), p.Amount.Currency(), p.Method, string(p.Status),
		p.TransactionID, p.FailureReason, p.CreatedAt, processedAt,
	); err != nil {
		return domain.PersistenceError("insert payment", err)
	}
	return nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, amount, currency, method, status,
		       transaction_id, failure_reason, created_at, processed_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, domain.PersistenceError("list payments", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var (
			p           domain.Payment
			amount      decimal.Decimal
			currency    string
			status      string
			processedAt *time.Time
		)
		if err := rows.Scan(&p.ID, &p.OrderID, &amount, &currency, &p.Method, &status,
			&p.TransactionID, &p.FailureReason, &p.CreatedAt, &processedAt); err != nil {
			return nil, domain.PersistenceError("scan payment", err)
		}
		p.Amount = domain.NewMoney(amount, strings.TrimSpace(currency))
		p.Status = domain.PaymentStatus(status)
		if processedAt != nil {
			p.ProcessedAt = processedAt.UTC()
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("iterate payments", err)
	}
	return payments, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)

package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func nowUTC() time.Time { return time.Now().UTC() }

type customerRepository struct {
	repos
}

// Create добавляет клиента и присваивает ему ID, если он не задан.
func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	unlock := r.lock()
	defer unlock()

	if customer.ID == 0 {
		r.s.nextCustomer++
		customer.ID = r.s.nextCustomer
	} else if customer.ID > r.s.nextCustomer {
		r.s.nextCustomer = customer.ID
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = nowUTC()
	}

	r.s.customers[customer.ID] = customer
	r.record(func() { delete(r.s.customers, customer.ID) })
	return customer, nil
}

// Get возвращает клиента или ErrCustomerNotFound.
func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	unlock := r.rlock()
	defer unlock()

	customer, ok := r.s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

type paymentRepository struct {
	repos
}

// Create сохраняет платёжную запись.
func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.lock()
	defer unlock()

	previous := r.s.payments[payment.OrderID]
	r.s.payments[payment.OrderID] = append(append([]domain.Payment(nil), previous...), payment)
	r.record(func() { r.s.payments[payment.OrderID] = previous })
	return nil
}

// ListByOrder возвращает платежи заказа в порядке создания.
func (r *paymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.rlock()
	defer unlock()

	return append([]domain.Payment(nil), r.s.payments[orderID]...), nil
}

var (
	_ domain.CustomerRepository = (*customerRepository)(nil)
	_ domain.PaymentRepository  = (*paymentRepository)(nil)
)

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment — платёжная запись по заказу.
type Payment struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	Amount        Money         `json:"amount"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"` // Пустой, пока шлюз не подтвердил платёж.
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ProcessedAt   time.Time     `json:"processed_at,omitempty"`
}

// NewPayment создаёт запись в статусе Pending на полную сумму заказа.
func NewPayment(order *Order, method string) Payment {
	if method == "" {
		method = "card"
	}
	return Payment{
		ID:        uuid.NewString(),
		OrderID:   order.ID(),
		Amount:    order.TotalAmount(),
		Method:    method,
		Status:    PaymentStatusPending,
		CreatedAt: now(),
	}
}

// MarkPaid фиксирует успешное списание.
func (p *Payment) MarkPaid(transactionID string) {
	p.Status = PaymentStatusPaid
	p.TransactionID = transactionID
	p.FailureReason = ""
	p.ProcessedAt = now()
}

// MarkFailed фиксирует отказ шлюза.
func (p *Payment) MarkFailed(reason string) {
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.ProcessedAt = now()
}

// ChargeResult — ответ платёжного шлюза.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Error         string
}

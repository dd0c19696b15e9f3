// Package payment содержит реализации платёжного шлюза.
package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов и локального запуска.
type MockGateway struct {
	mu sync.Mutex

	Decline       bool
	DeclineReason string
	Err           error

	ChargeCalls int
	Charged     []domain.Payment
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{DeclineReason: "card declined"}
}

// Charge возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Charge(ctx context.Context, payment domain.Payment) (domain.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChargeCalls++
	m.Charged = append(m.Charged, payment)

	if err := ctx.Err(); err != nil {
		return domain.ChargeResult{}, err
	}
	if m.Err != nil {
		return domain.ChargeResult{}, m.Err
	}
	if m.Decline {
		return domain.ChargeResult{Success: false, Error: m.DeclineReason}, nil
	}
	return domain.ChargeResult{Success: true, TransactionID: uuid.NewString()}, nil
}

// Calls возвращает число вызовов Charge.
func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ChargeCalls
}

var _ domain.PaymentGateway = (*MockGateway)(nil)

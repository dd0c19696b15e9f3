package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultSimulatedDelay — задержка имитации ответа шлюза.
const DefaultSimulatedDelay = 500 * time.Millisecond

// SimulatedGateway имитирует внешний шлюз: ждёт delay и одобряет платёж.
// Отмена ctx во время ожидания возвращает ошибку ctx.
type SimulatedGateway struct {
	delay  time.Duration
	logger *log.Entry
}

// NewSimulatedGateway создаёт шлюз с заданной задержкой (DefaultSimulatedDelay при delay < 0).
func NewSimulatedGateway(delay time.Duration, logger *log.Entry) *SimulatedGateway {
	if delay < 0 {
		delay = DefaultSimulatedDelay
	}
	if logger == nil {
		logger = log.WithField("component", "payment-simulator")
	}
	return &SimulatedGateway{delay: delay, logger: logger}
}

func (g *SimulatedGateway) Charge(ctx context.Context, payment domain.Payment) (domain.ChargeResult, error) {
	timer := time.NewTimer(g.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return domain.ChargeResult{}, ctx.Err()
	case <-timer.C:
	}

	result := domain.ChargeResult{Success: true, TransactionID: uuid.NewString()}
	g.logger.WithFields(log.Fields{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"amount":         payment.Amount.String(),
		"transaction_id": result.TransactionID,
	}).Debug("simulated charge approved")
	return result, nil
}

var _ domain.PaymentGateway = (*SimulatedGateway)(nil)

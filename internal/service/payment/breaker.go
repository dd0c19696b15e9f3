package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrCircuitOpen возвращается, пока circuit breaker разомкнут.
var ErrCircuitOpen = fmt.Errorf("%w: payment circuit breaker is open", domain.ErrInfrastructure)

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerGateway защищает шлюз circuit breaker'ом. Отказ шлюза (decline) не
// считается сбоем: размыкание происходит только по ошибкам вызова.
type BreakerGateway struct {
	next         domain.PaymentGateway
	maxFailures  int
	resetTimeout time.Duration
	logger       *log.Entry
	now          func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
}

// NewBreakerGateway оборачивает next. maxFailures подряд идущих ошибок размыкают цепь
// на resetTimeout, после чего пропускается один пробный вызов.
func NewBreakerGateway(next domain.PaymentGateway, maxFailures int, resetTimeout time.Duration, logger *log.Entry) *BreakerGateway {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.WithField("component", "payment-breaker")
	}
	return &BreakerGateway{
		next:         next,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		logger:       logger,
		now:          time.Now,
		state:        CircuitClosed,
	}
}

// State возвращает текущее состояние цепи.
func (b *BreakerGateway) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerGateway) Charge(ctx context.Context, payment domain.Payment) (domain.ChargeResult, error) {
	if err := b.allow(); err != nil {
		return domain.ChargeResult{}, err
	}

	result, err := b.next.Charge(ctx, payment)
	// Отмена вызывающим не говорит о здоровье шлюза.
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		b.release()
		return result, err
	}
	b.record(err)
	if err != nil {
		return result, fmt.Errorf("%w: payment gateway: %w", domain.ErrInfrastructure, err)
	}
	return result, nil
}

func (b *BreakerGateway) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			return ErrCircuitOpen
		}
		b.state = CircuitHalfOpen
		b.logger.Info("payment circuit breaker half-open")
		return nil
	case CircuitHalfOpen:
		// Пробный вызов уже выполняется.
		return ErrCircuitOpen
	default:
		return nil
	}
}

// release возвращает цепь из half-open без оценки результата.
func (b *BreakerGateway) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitHalfOpen {
		b.state = CircuitOpen
	}
}

func (b *BreakerGateway) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == CircuitHalfOpen {
			b.logger.Info("payment circuit breaker closed")
		}
		b.state = CircuitClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == CircuitHalfOpen || b.failures >= b.maxFailures {
		b.state = CircuitOpen
		b.logger.WithFields(log.Fields{
			"failures": b.failures,
			"error":    err,
		}).Warn("payment circuit breaker opened")
	}
}

var _ domain.PaymentGateway = (*BreakerGateway)(nil)

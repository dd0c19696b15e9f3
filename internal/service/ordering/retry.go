package ordering

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// RetryConfig — параметры повторов при конфликте версий заказа.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      200 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) normalize() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
	return c
}

// retryOnConflict повторяет fn, пока она возвращает ErrOrderVersionConflict.
// Остальные ошибки возвращаются сразу.
func (s *Service) retryOnConflict(ctx context.Context, operation, orderID string, fn func() error) error {
	delay := s.retry.InitialDelay

	var err error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		if err = fn(); err == nil || !domain.IsVersionConflict(err) {
			return err
		}
		if attempt == s.retry.MaxAttempts {
			break
		}

		s.metrics.RecordVersionRetry()
		s.logger.WithFields(log.Fields{
			"operation": operation,
			"order_id":  orderID,
			"attempt":   attempt,
			"delay":     delay,
		}).Warn("order version conflict, retrying")

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		delay = min(time.Duration(float64(delay)*s.retry.BackoffFactor), s.retry.MaxDelay)
	}
	return err
}

package ordering

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const defaultPaymentMethod = "card"

// ProcessPayment списывает полную сумму заказа через платёжный шлюз.
// Отказ шлюза не ошибка: платёж и заказ сохраняются со статусом Failed.
// Сбой шлюза возвращается как ErrInfrastructure, и ничего не сохраняется.
// Устаревшая копия заказа отклоняется с ErrOrderVersionConflict до обращения
// к шлюзу, поэтому две копии одного заказа не оплачиваются дважды.
func (s *Service) ProcessPayment(ctx context.Context, order *domain.Order) error {
	defer s.metrics.StartOperation("process_payment")()

	return s.withOrderLock(ctx, order.ID(), func() error {
		stored, err := s.store.Orders().Get(ctx, order.ID())
		if err != nil {
			return err
		}
		if stored.Version() != order.Version() {
			return fmt.Errorf("%w: order %s is at version %d, got %d",
				domain.ErrOrderVersionConflict, order.ID(), stored.Version(), order.Version())
		}
		return s.processPayment(ctx, order, defaultPaymentMethod)
	})
}

// PayOrder загружает заказ и оплачивает его указанным способом.
func (s *Service) PayOrder(ctx context.Context, orderID, method string) (*domain.Order, error) {
	defer s.metrics.StartOperation("pay_order")()

	var order *domain.Order
	err := s.withOrderLock(ctx, orderID, func() error {
		var err error
		if order, err = s.store.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		return s.processPayment(ctx, order, method)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) processPayment(ctx context.Context, order *domain.Order, method string) error {
	if !s.CanProcessPayment(order) {
		return fmt.Errorf("%w (status %s, payment %s)", domain.ErrPaymentNotAllowed, order.Status(), order.PaymentStatus())
	}

	logger := s.logger.WithFields(log.Fields{
		"order_id":     order.ID(),
		"order_number": order.OrderNumber(),
		"amount":       order.TotalAmount().String(),
	})

	payment := domain.NewPayment(order, method)
	result, err := s.gateway.Charge(ctx, payment)
	if err != nil {
		s.metrics.RecordPayment(metrics.PaymentResultError)
		logger.WithError(err).Error("payment gateway failure")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrInfrastructure) {
			return err
		}
		return fmt.Errorf("%w: payment gateway: %w", domain.ErrInfrastructure, err)
	}
	if err := ctx.Err(); err != nil {
		logger.WithError(err).Warn("payment result discarded: request cancelled")
		return err
	}

	working := domain.RestoreOrder(order.Snapshot())
	status, outcome := domain.PaymentStatusPaid, metrics.PaymentResultPaid
	if result.Success {
		payment.MarkPaid(result.TransactionID)
	} else {
		status, outcome = domain.PaymentStatusFailed, metrics.PaymentResultFailed
		payment.MarkFailed(result.Error)
	}
	if err := working.ProcessPayment(status); err != nil {
		return err
	}

	events, err := s.commit(ctx, working, false, func(ctx context.Context, tx domain.Repositories) error {
		return tx.Payments().Create(ctx, payment)
	})
	if err != nil {
		logger.WithError(err).WithField("transaction_id", payment.TransactionID).Error("failed to persist payment result")
		return err
	}

	*order = *working
	s.metrics.RecordPayment(outcome)
	if result.Success {
		logger.WithField("transaction_id", payment.TransactionID).Info("payment processed")
	} else {
		logger.WithField("reason", payment.FailureReason).Warn("payment declined")
	}
	s.dispatch(ctx, order, events)
	return nil
}

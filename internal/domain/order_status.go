package domain

import "fmt"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, позиции ещё можно менять.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён и ждёт отгрузки.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus описывает состояние оплаты заказа и платёжной записи.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата ещё не проводилась.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — платёж подтверждён шлюзом.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed — шлюз отклонил платёж.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded — деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ParseOrderStatus приводит строку к OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch status := OrderStatus(raw); status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidArgument, raw)
	}
}

// ParsePaymentStatus приводит строку к PaymentStatus.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch status := PaymentStatus(raw); status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidArgument, raw)
	}
}

// rank задаёт порядок статусов для сортировки ByStatus.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 0
	case OrderStatusConfirmed:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered:
		return 3
	case OrderStatusCancelled:
		return 4
	default:
		return 5
	}
}

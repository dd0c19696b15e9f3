package domain

import "time"

// EventType — тип доменного события заказа.
type EventType string

const (
	EventOrderCreated          EventType = "OrderCreated"
	EventOrderConfirmed        EventType = "OrderConfirmed"
	EventOrderShipped          EventType = "OrderShipped"
	EventOrderDelivered        EventType = "OrderDelivered"
	EventOrderCancelled        EventType = "OrderCancelled"
	EventOrderPaymentProcessed EventType = "OrderPaymentProcessed"
)

// Event — доменное событие, накопленное агрегатом до фиксации изменений.
type Event struct {
	Type           EventType     `json:"type"`
	OrderID        string        `json:"order_id"`
	OrderNumber    string        `json:"order_number"`
	CustomerID     int64         `json:"customer_id"`
	Status         OrderStatus   `json:"status"`
	PreviousStatus OrderStatus   `json:"previous_status,omitempty"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	TotalAmount    Money         `json:"total_amount"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// IsStatusChange сообщает, что событие отражает смену статуса заказа.
func (e Event) IsStatusChange() bool {
	switch e.Type {
	case EventOrderConfirmed, EventOrderShipped, EventOrderDelivered, EventOrderCancelled:
		return true
	default:
		return false
	}
}

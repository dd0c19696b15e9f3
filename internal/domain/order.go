package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var now = func() time.Time { return time.Now().UTC() }

// Order — агрегат заказа. Владеет позициями, следит за суммой и
// допускает смену статуса только по разрешённым переходам.
type Order struct {
	id                 string
	orderNumber        string
	customerID         int64
	status             OrderStatus
	paymentStatus      PaymentStatus
	totalAmount        Money
	shippingAddress    Address
	notes              string
	items              []OrderItem
	inventoryCommitted bool
	version            int64
	createdAt          time.Time
	updatedAt          time.Time

	events []Event
}

// NewOrder создаёт заказ в статусе Pending с нулевой суммой и генерирует номер заказа.
func NewOrder(customerID int64, shippingAddress Address, notes string) *Order {
	ts := now()
	order := &Order{
		id:              uuid.NewString(),
		orderNumber:     GenerateOrderNumber(ts),
		customerID:      customerID,
		status:          OrderStatusPending,
		paymentStatus:   PaymentStatusPending,
		totalAmount:     ZeroMoney(DefaultCurrency),
		shippingAddress: shippingAddress,
		notes:           strings.TrimSpace(notes),
		createdAt:       ts,
		updatedAt:       ts,
	}
	order.raise(EventOrderCreated, "")
	return order
}

// GenerateOrderNumber формирует номер вида ORD-20240102-1A2B3C4D.
func GenerateOrderNumber(ts time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + ts.UTC().Format("20060102") + "-" + suffix
}

// ID возвращает идентификатор заказа.
func (o *Order) ID() string { return o.id }

// OrderNumber возвращает человекочитаемый номер заказа.
func (o *Order) OrderNumber() string { return o.orderNumber }

func (o *Order) CustomerID() int64 { return o.customerID }

func (o *Order) Status() OrderStatus { return o.status }

func (o *Order) PaymentStatus() PaymentStatus { return o.paymentStatus }

// TotalAmount всегда равна сумме LineTotal всех позиций.
func (o *Order) TotalAmount() Money { return o.totalAmount }

func (o *Order) ShippingAddress() Address { return o.shippingAddress }

func (o *Order) Notes() string { return o.notes }

// InventoryCommitted сообщает, что остатки по позициям уже списаны со склада.
func (o *Order) InventoryCommitted() bool { return o.inventoryCommitted }

// Version используется для optimistic locking в хранилище.
func (o *Order) Version() int64 { return o.version }

func (o *Order) CreatedAt() time.Time { return o.createdAt }

func (o *Order) LastModifiedAt() time.Time { return o.updatedAt }

// Currency возвращает валюту заказа.
func (o *Order) Currency() string { return o.totalAmount.Currency() }

// Items возвращает копию списка позиций.
func (o *Order) Items() []OrderItem { return append([]OrderItem(nil), o.items...) }

func (o *Order) item(productID int64) (int, bool) {
	for idx := range o.items {
		if o.items[idx].productID == productID {
			return idx, true
		}
	}
	return -1, false
}

// AddItem добавляет позицию или увеличивает количество у существующей позиции того же товара.
func (o *Order) AddItem(productID int64, productName string, unitPrice Money, quantity int) error {
	if err := o.requirePending("add item"); err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidArgument)
	}
	if len(o.items) == 0 {
		// валюту заказа задаёт первая позиция
		o.totalAmount = ZeroMoney(unitPrice.Currency())
	} else if unitPrice.Currency() != o.Currency() {
		return currencyMismatch(o.totalAmount, unitPrice)
	}

	if idx, ok := o.item(productID); ok {
		o.items[idx].setQuantity(o.items[idx].quantity + quantity)
	} else {
		o.items = append(o.items, newOrderItem(productID, productName, unitPrice, quantity))
	}
	o.recalculate()
	return nil
}

// RemoveItem удаляет позицию товара; отсутствующая позиция игнорируется.
func (o *Order) RemoveItem(productID int64) error {
	if err := o.requirePending("remove item"); err != nil {
		return err
	}
	idx, ok := o.item(productID)
	if !ok {
		return nil
	}
	o.items = append(o.items[:idx], o.items[idx+1:]...)
	o.recalculate()
	return nil
}

// UpdateItemQuantity задаёт новое количество для позиции товара.
func (o *Order) UpdateItemQuantity(productID int64, quantity int) error {
	if err := o.requirePending("update item quantity"); err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidArgument)
	}
	idx, ok := o.item(productID)
	if !ok {
		return nil
	}
	o.items[idx].setQuantity(quantity)
	o.recalculate()
	return nil
}

// Confirm переводит Pending -> Confirmed. Пустой заказ подтвердить нельзя.
func (o *Order) Confirm() error {
	if o.status != OrderStatusPending {
		return o.invalidTransition(OrderStatusConfirmed, "confirm", "")
	}
	if len(o.items) == 0 {
		return o.invalidTransition(OrderStatusConfirmed, "confirm", "order has no items")
	}
	o.transition(OrderStatusConfirmed, EventOrderConfirmed)
	return nil
}

// Ship переводит Confirmed -> Shipped при подтверждённой оплате.
func (o *Order) Ship() error {
	if o.status != OrderStatusConfirmed {
		return o.invalidTransition(OrderStatusShipped, "ship", "")
	}
	if o.paymentStatus != PaymentStatusPaid {
		return o.invalidTransition(OrderStatusShipped, "ship", "payment status is "+string(o.paymentStatus))
	}
	o.transition(OrderStatusShipped, EventOrderShipped)
	return nil
}

// Deliver переводит Shipped -> Delivered.
func (o *Order) Deliver() error {
	if o.status != OrderStatusShipped {
		return o.invalidTransition(OrderStatusDelivered, "deliver", "")
	}
	o.transition(OrderStatusDelivered, EventOrderDelivered)
	return nil
}

// Cancel отменяет заказ из Pending, Confirmed или Shipped.
func (o *Order) Cancel() error {
	switch o.status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped:
		o.transition(OrderStatusCancelled, EventOrderCancelled)
		return nil
	default:
		return o.invalidTransition(OrderStatusCancelled, "cancel", "")
	}
}

// ProcessPayment фиксирует результат оплаты; статус заказа не меняется.
func (o *Order) ProcessPayment(status PaymentStatus) error {
	if _, err := ParsePaymentStatus(string(status)); err != nil {
		return err
	}
	o.paymentStatus = status
	o.touch()
	o.raise(EventOrderPaymentProcessed, "")
	return nil
}

// MarkInventoryCommitted отмечает, что остатки по позициям списаны.
func (o *Order) MarkInventoryCommitted() {
	o.inventoryCommitted = true
	o.touch()
}

// ReleaseInventory снимает отметку о списании (после возврата остатков на склад).
func (o *Order) ReleaseInventory() {
	o.inventoryCommitted = false
	o.touch()
}

// AdvanceVersion увеличивает версию после успешного сохранения.
func (o *Order) AdvanceVersion() {
	o.version++
}

// PullEvents возвращает накопленные события и очищает очередь.
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) requirePending(operation string) error {
	if o.status != OrderStatusPending {
		return &StateError{Current: o.status, Attempted: o.status, Operation: operation}
	}
	return nil
}

func (o *Order) invalidTransition(to OrderStatus, operation, reason string) error {
	return &StateError{Current: o.status, Attempted: to, Operation: operation, Reason: reason}
}

func (o *Order) transition(to OrderStatus, event EventType) {
	previous := o.status
	o.status = to
	o.touch()
	o.raise(event, previous)
}

func (o *Order) recalculate() {
	total := ZeroMoney(o.Currency())
	for _, item := range o.items {
		// валюта позиций совпадает с валютой заказа, проверено в AddItem
		total, _ = total.Add(item.lineTotal)
	}
	o.totalAmount = total
	o.touch()
}

func (o *Order) touch() {
	o.updatedAt = now()
}

func (o *Order) raise(eventType EventType, previous OrderStatus) {
	o.events = append(o.events, Event{
		Type:           eventType,
		OrderID:        o.id,
		OrderNumber:    o.orderNumber,
		CustomerID:     o.customerID,
		Status:         o.status,
		PreviousStatus: previous,
		PaymentStatus:  o.paymentStatus,
		TotalAmount:    o.totalAmount,
		OccurredAt:     o.updatedAt,
	})
}

package domain

import "time"

// OrderItemSnapshot — плоское представление позиции для хранилищ и DTO.
type OrderItemSnapshot struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   Money  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   Money  `json:"line_total"`
}

// OrderSnapshot — плоское представление заказа. Используется репозиториями,
// кешем и транспортом; сам агрегат наружу поля не раскрывает.
type OrderSnapshot struct {
	ID                 string              `json:"id"`
	OrderNumber        string              `json:"order_number"`
	CustomerID         int64               `json:"customer_id"`
	Status             OrderStatus         `json:"status"`
	PaymentStatus      PaymentStatus       `json:"payment_status"`
	TotalAmount        Money               `json:"total_amount"`
	ShippingAddress    Address             `json:"shipping_address"`
	Notes              string              `json:"notes,omitempty"`
	Items              []OrderItemSnapshot `json:"items"`
	InventoryCommitted bool                `json:"inventory_committed"`
	Version            int64               `json:"version"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Snapshot возвращает копию состояния заказа.
func (o *Order) Snapshot() OrderSnapshot {
	items := make([]OrderItemSnapshot, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, OrderItemSnapshot{
			ProductID:   item.productID,
			ProductName: item.productName,
			UnitPrice:   item.unitPrice,
			Quantity:    item.quantity,
			LineTotal:   item.lineTotal,
		})
	}

	return OrderSnapshot{
		ID:                 o.id,
		OrderNumber:        o.orderNumber,
		CustomerID:         o.customerID,
		Status:             o.status,
		PaymentStatus:      o.paymentStatus,
		TotalAmount:        o.totalAmount,
		ShippingAddress:    o.shippingAddress,
		Notes:              o.notes,
		Items:              items,
		InventoryCommitted: o.inventoryCommitted,
		Version:            o.version,
		CreatedAt:          o.createdAt,
		UpdatedAt:          o.updatedAt,
	}
}

// RestoreOrder восстанавливает агрегат из снимка хранилища.
// Суммы позиций и заказа пересчитываются, очередь событий пуста.
func RestoreOrder(s OrderSnapshot) *Order {
	currency := s.TotalAmount.Currency()
	order := &Order{
		id:                 s.ID,
		orderNumber:        s.OrderNumber,
		customerID:         s.CustomerID,
		status:             s.Status,
		paymentStatus:      s.PaymentStatus,
		shippingAddress:    s.ShippingAddress,
		notes:              s.Notes,
		inventoryCommitted: s.InventoryCommitted,
		version:            s.Version,
		createdAt:          s.CreatedAt,
		updatedAt:          s.UpdatedAt,
	}

	total := ZeroMoney(currency)
	for _, item := range s.Items {
		restored := newOrderItem(item.ProductID, item.ProductName, item.UnitPrice, item.Quantity)
		order.items = append(order.items, restored)
		if sum, err := total.Add(restored.lineTotal); err == nil {
			total = sum
		}
	}
	order.totalAmount = total
	return order
}

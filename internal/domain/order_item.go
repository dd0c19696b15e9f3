package domain

// OrderItem — позиция заказа. Создаётся и изменяется только через Order.
type OrderItem struct {
	productID   int64
	productName string
	unitPrice   Money
	quantity    int
	lineTotal   Money
}

func newOrderItem(productID int64, productName string, unitPrice Money, quantity int) OrderItem {
	item := OrderItem{
		productID:   productID,
		productName: productName,
		unitPrice:   unitPrice,
	}
	item.setQuantity(quantity)
	return item
}

func (i *OrderItem) setQuantity(quantity int) {
	i.quantity = quantity
	i.lineTotal = i.unitPrice.Mul(quantity)
}

// ProductID возвращает идентификатор товара.
func (i OrderItem) ProductID() int64 { return i.productID }

// ProductName возвращает название товара на момент заказа.
func (i OrderItem) ProductName() string { return i.productName }

// UnitPrice возвращает цену за единицу.
func (i OrderItem) UnitPrice() Money { return i.unitPrice }

// Quantity возвращает количество единиц.
func (i OrderItem) Quantity() int { return i.quantity }

// LineTotal возвращает unitPrice * quantity.
func (i OrderItem) LineTotal() Money { return i.lineTotal }

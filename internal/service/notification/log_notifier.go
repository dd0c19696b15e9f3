package notification

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LogNotifier пишет уведомления в лог. Используется по умолчанию, когда брокер не настроен.
type LogNotifier struct {
	logger *log.Entry
}

func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyOrderCreated(_ context.Context, order domain.OrderSnapshot) error {
	n.orderEntry(order).Info("order created")
	return nil
}

func (n *LogNotifier) NotifyOrderStatusChanged(_ context.Context, order domain.OrderSnapshot, previous domain.OrderStatus) error {
	n.orderEntry(order).WithField("previous_status", previous).Info("order status changed")
	return nil
}

func (n *LogNotifier) NotifyPaymentProcessed(_ context.Context, order domain.OrderSnapshot, status domain.PaymentStatus) error {
	n.orderEntry(order).WithField("payment_result", status).Info("payment processed")
	return nil
}

func (n *LogNotifier) NotifyInventoryUpdated(_ context.Context, productID int64, newQuantity, oldQuantity int) error {
	n.logger.WithFields(log.Fields{
		"product_id":   productID,
		"quantity":     newQuantity,
		"old_quantity": oldQuantity,
	}).Info("inventory updated")
	return nil
}

func (n *LogNotifier) NotifyLowStockAlert(_ context.Context, productID int64, productName string, quantity int) error {
	n.logger.WithFields(log.Fields{
		"product_id":   productID,
		"product_name": productName,
		"quantity":     quantity,
	}).Warn("low stock")
	return nil
}

func (n *LogNotifier) orderEntry(order domain.OrderSnapshot) *log.Entry {
	return n.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"customer_id":    order.CustomerID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"total":          order.TotalAmount.String(),
	})
}

var _ domain.Notifier = (*LogNotifier)(nil)

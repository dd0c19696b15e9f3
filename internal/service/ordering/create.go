package ordering

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderLine — запрошенная позиция заказа.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

// CreateOrderRequest — данные для создания заказа. Цены и названия товаров
// берутся из каталога на момент создания.
type CreateOrderRequest struct {
	CustomerID      int64
	ShippingAddress domain.Address
	Notes           string
	Items           []OrderLine
}

// CreateOrder проверяет запрос по каталогу и в одной единице работы списывает
// остатки, сохраняет заказ и его события.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	defer s.metrics.StartOperation("create_order")()

	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("Order must have at least one item.")
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(req.Items))
	for _, line := range req.Items {
		ids = append(ids, line.ProductID)
	}
	products, err := s.store.Products().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, line := range req.Items {
		if _, ok := products[line.ProductID]; !ok {
			missing = append(missing, productNotFound(line.ProductID))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.NewValidationError(missing...)
	}

	order := domain.NewOrder(req.CustomerID, req.ShippingAddress, req.Notes)
	for _, line := range req.Items {
		product := products[line.ProductID]
		if err := order.AddItem(product.ID, product.Name, product.Price, line.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.ValidateOrder(ctx, order); err != nil {
		return nil, err
	}

	var changes []stockChange
	events, err := s.commit(ctx, order, true, func(ctx context.Context, tx domain.Repositories) error {
		var err error
		changes, err = s.reserveStock(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderCreated()
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID(),
		"order_number": order.OrderNumber(),
		"customer_id":  order.CustomerID(),
		"total":        order.TotalAmount().String(),
	}).Info("order created")

	s.dispatch(ctx, order, events)
	s.afterStockChange(ctx, changes, true)
	return order, nil
}

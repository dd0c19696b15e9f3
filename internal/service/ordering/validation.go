package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func productNotFound(id int64) string {
	return fmt.Sprintf("Product with ID %d not found.", id)
}

func insufficientInventory(name string, available, requested int) string {
	return fmt.Sprintf("Insufficient inventory for product %s. Available: %d, Requested: %d", name, available, requested)
}

// ValidateOrder проверяет заказ по текущему каталогу и собирает все нарушения
// в *domain.ValidationError. Ошибки хранилища возвращаются как есть.
func (s *Service) ValidateOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var violations []string
	items := order.Items()
	if len(items) == 0 {
		violations = append(violations, "Order must have at least one item.")
	}
	if !order.TotalAmount().IsPositive() {
		violations = append(violations, "Order total must be greater than zero.")
	}

	if _, err := s.store.Customers().Get(ctx, order.CustomerID()); err != nil {
		if !errors.Is(err, domain.ErrCustomerNotFound) {
			return err
		}
		violations = append(violations, "Customer not found.")
	}

	products, err := s.store.Products().GetMany(ctx, productIDs(items))
	if err != nil {
		return err
	}
	for _, item := range items {
		product, ok := products[item.ProductID()]
		if !ok {
			violations = append(violations, productNotFound(item.ProductID()))
			continue
		}
		if !order.InventoryCommitted() && product.Inventory < item.Quantity() {
			violations = append(violations, insufficientInventory(product.Name, product.Inventory, item.Quantity()))
		}
		if !product.Price.Equal(item.UnitPrice()) {
			violations = append(violations, fmt.Sprintf("Product price mismatch for %s. Expected: %s, Actual: %s",
				product.Name, product.Price.Amount().StringFixed(2), item.UnitPrice().Amount().StringFixed(2)))
		}
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}

// CanProcessPayment сообщает, можно ли оплатить заказ: статус Pending или
// Confirmed и оплата ещё не проведена.
func (s *Service) CanProcessPayment(order *domain.Order) bool {
	switch order.Status() {
	case domain.OrderStatusPending, domain.OrderStatusConfirmed:
		return order.PaymentStatus() != domain.PaymentStatusPaid
	default:
		return false
	}
}

// CanShipOrder проверяет, что заказ подтверждён, оплачен и все товары на месте.
// Остатки перечитываются из хранилища; для заказа со списанными остатками
// проверяется только наличие товаров.
func (s *Service) CanShipOrder(ctx context.Context, order *domain.Order) (bool, error) {
	if order.Status() != domain.OrderStatusConfirmed || order.PaymentStatus() != domain.PaymentStatusPaid {
		return false, nil
	}
	violations, err := s.stockViolations(ctx, order)
	if err != nil {
		return false, err
	}
	return len(violations) == 0, nil
}

func (s *Service) stockViolations(ctx context.Context, order *domain.Order) ([]string, error) {
	items := order.Items()
	products, err := s.store.Products().GetMany(ctx, productIDs(items))
	if err != nil {
		return nil, err
	}

	var violations []string
	for _, item := range items {
		product, ok := products[item.ProductID()]
		switch {
		case !ok:
			violations = append(violations, productNotFound(item.ProductID()))
		case !order.InventoryCommitted() && product.Inventory < item.Quantity():
			violations = append(violations, insufficientInventory(product.Name, product.Inventory, item.Quantity()))
		}
	}
	return violations, nil
}

func productIDs(items []domain.OrderItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID())
	}
	return ids
}

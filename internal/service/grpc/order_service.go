package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
)

// Orders — операции сервиса заказов, доступные через gRPC.
type Orders interface {
	CreateOrder(ctx context.Context, req ordering.CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error)
	GetOrderTimeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error)
	ValidateOrder(ctx context.Context, order *domain.Order) error
	CanProcessPayment(order *domain.Order) bool
	CanShipOrder(ctx context.Context, order *domain.Order) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	PayOrder(ctx context.Context, orderID, method string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateInventoryForOrder(ctx context.Context, order *domain.Order) error
}

// OrderService реализует storefront.v1.OrderService поверх сервиса заказов.
type OrderService struct {
	orders Orders
	logger *log.Entry
}

// NewOrderService конструирует gRPC-обёртку.
func NewOrderService(orders Orders, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "grpc-orders")
	}
	return &OrderService{orders: orders, logger: logger}
}

// CreateOrder создаёт заказ по позициям каталога.
func (s *OrderService) CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	addr := f.object("shipping_address")
	create := ordering.CreateOrderRequest{
		CustomerID: f.requiredInt("customer_id"),
		Notes:      f.str("notes"),
		ShippingAddress: domain.Address{
			Street:     addr.str("street"),
			City:       addr.str("city"),
			State:      addr.str("state"),
			PostalCode: addr.str("postal_code"),
			Country:    addr.str("country"),
		},
	}
	for _, item := range f.list("items") {
		create.Items = append(create.Items, ordering.OrderLine{
			ProductID: item.requiredInt("product_id"),
			Quantity:  int(item.requiredInt("quantity")),
		})
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, create)
	if err != nil {
		return nil, toStatus(s.logger, "CreateOrder", err)
	}
	return encode(map[string]any{"order": orderValue(order)})
}

// GetOrder возвращает заказ, его таймлайн и доступные действия.
func (s *OrderService) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	orderID := f.requiredStr("order_id")
	if err := f.err(); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrder", err)
	}
	timeline, err := s.orders.GetOrderTimeline(ctx, orderID)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrder", err)
	}
	canShip, err := s.orders.CanShipOrder(ctx, order)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrder", err)
	}

	return encode(map[string]any{
		"order":               orderValue(order),
		"timeline":            timelineValue(timeline),
		"can_process_payment": s.orders.CanProcessPayment(order),
		"can_ship":            canShip,
	})
}

// ListOrders возвращает страницу заказов по фильтру.
func (s *OrderService) ListOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	filter := domain.OrderFilter{
		CustomerID:  f.int("customer_id"),
		OrderNumber: f.str("order_number"),
		From:        f.time("from"),
		To:          f.time("to"),
		SortBy:      domain.OrderSortKey(f.str("sort_by")),
		Ascending:   f.bool("ascending"),
		PageNumber:  int(f.int("page_number")),
		PageSize:    int(f.int("page_size")),
	}
	if raw := f.str("status"); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			f.fail("unknown status %q", raw)
		}
		filter.Status = status
	}
	if raw := f.str("payment_status"); raw != "" {
		status, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			f.fail("unknown payment_status %q", raw)
		}
		filter.PaymentStatus = status
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	page, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, toStatus(s.logger, "ListOrders", err)
	}
	orders := make([]any, 0, len(page.Orders))
	for _, order := range page.Orders {
		orders = append(orders, orderValue(order))
	}
	return encode(map[string]any{
		"orders":      orders,
		"total_count": page.TotalCount,
		"page_number": page.PageNumber,
		"page_size":   page.PageSize,
	})
}

// ValidateOrder проверяет сохранённый заказ по текущему каталогу.
// Нарушения возвращаются в ответе, а не ошибкой.
func (s *OrderService) ValidateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	orderID := f.requiredStr("order_id")
	if err := f.err(); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, toStatus(s.logger, "ValidateOrder", err)
	}

	violations := make([]any, 0)
	err = s.orders.ValidateOrder(ctx, order)
	var verr *domain.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		for _, v := range verr.Violations {
			violations = append(violations, v)
		}
	default:
		return nil, toStatus(s.logger, "ValidateOrder", err)
	}

	return encode(map[string]any{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}

// UpdateOrderStatus переводит заказ в указанный статус.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	orderID := f.requiredStr("order_id")
	raw := f.requiredStr("status")
	if err := f.err(); err != nil {
		return nil, err
	}

	order, err := s.orders.UpdateOrderStatus(ctx, orderID, domain.OrderStatus(raw))
	if err != nil {
		return nil, toStatus(s.logger, "UpdateOrderStatus", err)
	}
	return encode(map[string]any{"order": orderValue(order)})
}

// PayOrder проводит оплату заказа. Отказ шлюза возвращается как заказ
// со статусом оплаты failed.
func (s *OrderService) PayOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	orderID := f.requiredStr("order_id")
	method := f.str("method")
	if err := f.err(); err != nil {
		return nil, err
	}
	if method == "" {
		method = "card"
	}

	order, err := s.orders.PayOrder(ctx, orderID, method)
	if err != nil {
		return nil, toStatus(s.logger, "PayOrder", err)
	}
	return encode(map[string]any{"order": orderValue(order)})
}

// CancelOrder отменяет заказ и возвращает остатки на склад.
func (s *OrderService) CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	orderID := f.requiredStr("order_id")
	if err := f.err(); err != nil {
		return nil, err
	}

	order, err := s.orders.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, toStatus(s.logger, "CancelOrder", err)
	}
	return encode(map[string]any{"order": orderValue(order)})
}

// CommitInventory списывает остатки по заказу, если это ещё не сделано.
func (s *OrderService) CommitInventory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	orderID := f.requiredStr("order_id")
	if err := f.err(); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, toStatus(s.logger, "CommitInventory", err)
	}
	if err := s.orders.UpdateInventoryForOrder(ctx, order); err != nil {
		return nil, toStatus(s.logger, "CommitInventory", err)
	}
	return encode(map[string]any{"order": orderValue(order)})
}

var (
	_ OrderServiceServer = (*OrderService)(nil)
	_ Orders             = (*ordering.Service)(nil)
)

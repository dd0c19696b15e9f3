package ordering

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type notification struct {
	kind      string
	orderID   string
	status    string
	productID int64
	quantity  int
	previous  int
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (n *recordingNotifier) add(call notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	return n.err
}

func (n *recordingNotifier) NotifyOrderCreated(_ context.Context, order domain.OrderSnapshot) error {
	return n.add(notification{kind: "created", orderID: order.ID, status: string(order.Status)})
}

func (n *recordingNotifier) NotifyOrderStatusChanged(_ context.Context, order domain.OrderSnapshot, previous domain.OrderStatus) error {
	return n.add(notification{kind: "status", orderID: order.ID, status: string(previous) + "->" + string(order.Status)})
}

func (n *recordingNotifier) NotifyPaymentProcessed(_ context.Context, order domain.OrderSnapshot, status domain.PaymentStatus) error {
	return n.add(notification{kind: "payment", orderID: order.ID, status: string(status)})
}

func (n *recordingNotifier) NotifyInventoryUpdated(_ context.Context, productID int64, newQuantity, oldQuantity int) error {
	return n.add(notification{kind: "inventory", productID: productID, quantity: newQuantity, previous: oldQuantity})
}

func (n *recordingNotifier) NotifyLowStockAlert(_ context.Context, productID int64, _ string, quantity int) error {
	return n.add(notification{kind: "low_stock", productID: productID, quantity: quantity})
}

func (n *recordingNotifier) byKind(kind string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var result []notification
	for _, call := range n.calls {
		if call.kind == kind {
			result = append(result, call)
		}
	}
	return result
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingInvalidator) Invalidate(_ context.Context, productIDs ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, productIDs...)
}

type fixture struct {
	svc         *Service
	store       *memory.Store
	gateway     *payment.MockGateway
	notifier    *recordingNotifier
	invalidator *recordingInvalidator
	customer    domain.Customer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:       memory.NewStore(),
		gateway:     payment.NewMockGateway(),
		notifier:    &recordingNotifier{},
		invalidator: &recordingInvalidator{},
	}
	opts = append([]Option{
		WithMetrics(metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry())),
		WithCatalogInvalidator(f.invalidator),
		WithRetryConfig(RetryConfig{MaxAttempts: 3, InitialDelay: 0}),
	}, opts...)
	f.svc = NewService(f.store, f.gateway, f.notifier, opts...)

	customer, err := f.store.Customers().Create(context.Background(), domain.Customer{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	require.NoError(t, err)
	f.customer = customer
	return f
}

func (f *fixture) product(t *testing.T, name, price string, inventory int) domain.Product {
	t.Helper()

	p, err := f.store.Products().Create(context.Background(), domain.Product{
		Name:      name,
		Price:     domain.NewMoney(decimal.RequireFromString(price), "USD"),
		Inventory: inventory,
		IsActive:  true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) inventory(t *testing.T, productID int64) int {
	t.Helper()

	p, err := f.store.Products().Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Inventory
}

func (f *fixture) request(lines ...OrderLine) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:      f.customer.ID,
		ShippingAddress: testAddress(),
		Items:           lines,
	}
}

func (f *fixture) createOrder(t *testing.T, lines ...OrderLine) *domain.Order {
	t.Helper()

	order, err := f.svc.CreateOrder(context.Background(), f.request(lines...))
	require.NoError(t, err)
	return order
}

func testAddress() domain.Address {
	addr, err := domain.NewAddress("1 Main St", "Springfield", "IL", "62701", "US")
	if err != nil {
		panic(err)
	}
	return addr
}

func validationViolations(t *testing.T, err error) []string {
	t.Helper()

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Violations
}

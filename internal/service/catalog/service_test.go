package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type inventoryCall struct {
	productID     int64
	newQ, oldQ    int
	lowStockAlert bool
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []inventoryCall
}

func (n *recordingNotifier) NotifyOrderCreated(context.Context, domain.OrderSnapshot) error {
	return nil
}

func (n *recordingNotifier) NotifyOrderStatusChanged(context.Context, domain.OrderSnapshot, domain.OrderStatus) error {
	return nil
}

func (n *recordingNotifier) NotifyPaymentProcessed(context.Context, domain.OrderSnapshot, domain.PaymentStatus) error {
	return nil
}

func (n *recordingNotifier) NotifyInventoryUpdated(_ context.Context, productID int64, newQ, oldQ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, inventoryCall{productID: productID, newQ: newQ, oldQ: oldQ})
	return nil
}

func (n *recordingNotifier) NotifyLowStockAlert(_ context.Context, productID int64, _ string, qty int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, inventoryCall{productID: productID, newQ: qty, lowStockAlert: true})
	return nil
}

func newTestService(t *testing.T) (*Service, *memory.Store, *recordingNotifier) {
	t.Helper()

	backend, err := cache.NewLRUBackend(64)
	require.NoError(t, err)
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	return NewService(store, cache.New(backend), notifier), store, notifier
}

func createProduct(t *testing.T, store *memory.Store, name, price string, inventory int) domain.Product {
	t.Helper()
	p, err := store.Products().Create(context.Background(), domain.Product{
		Name:      name,
		Price:     domain.NewMoney(decimal.RequireFromString(price), "USD"),
		Inventory: inventory,
		IsActive:  true,
	})
	require.NoError(t, err)
	return p
}

func TestListingKey_Normalization(t *testing.T) {
	min1 := decimal.RequireFromString("10")
	min2 := decimal.RequireFromString("10.00")

	a := ListingKey(1, domain.ProductQuery{Name: "  Keyboard ", MinPrice: &min1})
	b := ListingKey(1, domain.ProductQuery{Name: "keyboard", MinPrice: &min2})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ListingKey(2, domain.ProductQuery{Name: "keyboard", MinPrice: &min1}))
	assert.NotEqual(t, a, ListingKey(1, domain.ProductQuery{Name: "mouse", MinPrice: &min1}))
	assert.Regexp(t, `^products:1:[0-9a-f]{64}$`, a)
}

func TestGetProduct_CacheAside(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, store, "Keyboard", "49.90", 20)

	first, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, first.Inventory)

	// Изменение в обход сервиса не видно до инвалидации.
	_, err = store.Products().SetInventory(ctx, p.ID, 5)
	require.NoError(t, err)

	cached, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, cached.Inventory)

	svc.Invalidate(ctx, p.ID)
	fresh, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Inventory)
	assert.True(t, fresh.Price.Equal(p.Price))
}

func TestGetProduct_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetProduct(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListProducts_InvalidatedOnCreate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	createProduct(t, store, "Keyboard", "49.90", 20)

	list, err := svc.ListProducts(ctx, domain.ProductQuery{Name: "key"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.CreateProduct(ctx, domain.Product{
		Name:      "Keyboard Pro",
		Price:     domain.NewMoney(decimal.RequireFromString("99"), "USD"),
		Inventory: 3,
		IsActive:  true,
	})
	require.NoError(t, err)

	list, err = svc.ListProducts(ctx, domain.ProductQuery{Name: " KEY "})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateProduct_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), domain.Product{Name: " "})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUpdateInventory_NotifiesAndEnqueues(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, store, "Mouse", "19.99", 50)

	_, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateInventory(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Inventory)

	cached, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, cached.Inventory)

	require.Len(t, notifier.calls, 2)
	assert.Equal(t, inventoryCall{productID: p.ID, newQ: 4, oldQ: 50}, notifier.calls[0])
	assert.True(t, notifier.calls[1].lowStockAlert)

	pending, err := store.Outbox().PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.OutboxEventInventoryChanged, pending[0].EventType)
	assert.JSONEq(t, fmt.Sprintf(`{"product_ids":[%d]}`, p.ID), string(pending[0].Payload))
}

func TestUpdateInventory_Errors(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateInventory(ctx, 1, -1)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.UpdateInventory(ctx, 999, 5)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Empty(t, notifier.calls)

	stats, err := store.Outbox().Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
}

// pausingStore задерживает чтение товара после того, как значение уже прочитано.
type pausingStore struct {
	*memory.Store
	products *pausingProducts
}

func (s *pausingStore) Products() domain.ProductRepository { return s.products }

type pausingProducts struct {
	domain.ProductRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingProducts) Get(ctx context.Context, id int64) (domain.Product, error) {
	product, err := p.ProductRepository.Get(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return product, err
}

func TestGetProduct_InvalidationDuringLoad(t *testing.T) {
	backend, err := cache.NewLRUBackend(64)
	require.NoError(t, err)
	inner := memory.NewStore()
	store := &pausingStore{
		Store: inner,
		products: &pausingProducts{
			ProductRepository: inner.Products(),
			read:              make(chan struct{}),
			release:           make(chan struct{}),
		},
	}
	svc := NewService(store, cache.New(backend), &recordingNotifier{})
	p := createProduct(t, inner, "Keyboard", "89.99", 20)
	ctx := context.Background()

	loaded := make(chan domain.Product, 1)
	go func() {
		got, err := svc.GetProduct(ctx, p.ID)
		assert.NoError(t, err)
		loaded <- got
	}()

	<-store.products.read
	_, err = svc.UpdateInventory(ctx, p.ID, 3)
	require.NoError(t, err)
	close(store.products.release)
	assert.Equal(t, 20, (<-loaded).Inventory)

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Inventory)
}

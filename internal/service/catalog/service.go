// Package catalog обслуживает чтение и изменение каталога товаров через кэш.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// CatalogTTL — время жизни товаров и выборок каталога в кэше.
	CatalogTTL = 10 * time.Minute
	// DefaultLowStockThreshold — остаток, при котором отправляется предупреждение.
	DefaultLowStockThreshold = 10

	generationKey = "products:generation"
	generationTTL = 24 * time.Hour
)

// ProductKey возвращает ключ кэша для одного товара.
func ProductKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

// ListingKey возвращает ключ выборки: поколение и sha256 нормализованного фильтра.
// Логически одинаковые фильтры дают один ключ.
func ListingKey(generation int64, query domain.ProductQuery) string {
	normalized := struct {
		Name       string `json:"name"`
		CategoryID int64  `json:"category_id"`
		MinPrice   string `json:"min_price"`
		MaxPrice   string `json:"max_price"`
	}{
		Name:       strings.ToLower(strings.TrimSpace(query.Name)),
		CategoryID: query.CategoryID,
	}
	if query.MinPrice != nil {
		normalized.MinPrice = query.MinPrice.String()
	}
	if query.MaxPrice != nil {
		normalized.MaxPrice = query.MaxPrice.String()
	}

	// Ошибка невозможна: структура из строк и чисел.
	raw, _ := json.Marshal(normalized)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("products:%d:%s", generation, hex.EncodeToString(sum[:]))
}

// Service — каталог товаров с cache-aside чтением.
type Service struct {
	store             domain.Store
	cache             *cache.Cache
	notifier          domain.Notifier
	logger            *log.Entry
	lowStockThreshold int
	now               func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLowStockThreshold переопределяет порог предупреждения об остатке.
func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.lowStockThreshold = threshold
		}
	}
}

// NewService создаёт сервис каталога.
func NewService(store domain.Store, c *cache.Cache, notifier domain.Notifier, opts ...Option) *Service {
	s := &Service{
		store:             store,
		cache:             c,
		notifier:          notifier,
		logger:            log.WithField("component", "catalog"),
		lowStockThreshold: DefaultLowStockThreshold,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProduct возвращает товар из кэша или хранилища.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return cache.GetOrSet(ctx, s.cache, ProductKey(id), CatalogTTL, func(ctx context.Context) (domain.Product, error) {
		return s.store.Products().Get(ctx, id)
	})
}

// ListProducts возвращает активные товары, подходящие под фильтр.
func (s *Service) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	key := ListingKey(s.generation(ctx), query)
	return cache.GetOrSet(ctx, s.cache, key, CatalogTTL, func(ctx context.Context) ([]domain.Product, error) {
		return s.store.Products().List(ctx, query)
	})
}

// CreateProduct сохраняет товар и сбрасывает закэшированные выборки.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	created, err := s.store.Products().Create(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.Invalidate(ctx)
	s.logger.WithFields(log.Fields{"product_id": created.ID, "name": created.Name}).Info("product created")
	return created, nil
}

// UpdateInventory задаёт остаток товара. Изменение публикуется через outbox,
// чтобы другие экземпляры сбросили свой кэш.
func (s *Service) UpdateInventory(ctx context.Context, productID int64, quantity int) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: inventory must be non-negative", domain.ErrInvalidArgument)
	}

	var (
		previous int
		product  domain.Product
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		var err error
		if previous, err = tx.Products().SetInventory(ctx, productID, quantity); err != nil {
			return err
		}
		if product, err = tx.Products().Get(ctx, productID); err != nil {
			return err
		}
		return EnqueueInventoryEvent(ctx, tx.Outbox(), domain.OutboxEventInventoryChanged, "", []int64{productID}, s.now())
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.Invalidate(ctx, productID)

	if err := s.notifier.NotifyInventoryUpdated(ctx, productID, quantity, previous); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("inventory notification failed")
	}
	if quantity <= s.lowStockThreshold {
		if err := s.notifier.NotifyLowStockAlert(ctx, productID, product.Name, quantity); err != nil {
			s.logger.WithError(err).WithField("product_id", productID).Warn("low stock notification failed")
		}
	}
	return product, nil
}

// Invalidate удаляет товары из кэша и сбрасывает все выборки.
func (s *Service) Invalidate(ctx context.Context, productIDs ...int64) {
	for _, id := range productIDs {
		s.cache.Remove(ctx, ProductKey(id))
	}
	s.cache.Set(ctx, generationKey, s.now().UnixNano(), generationTTL)
}

// generation возвращает текущее поколение выборок. Значение — момент последней
// инвалидации, поэтому после потери ключа старые выборки не переиспользуются.
func (s *Service) generation(ctx context.Context) int64 {
	var gen int64
	if s.cache.Get(ctx, generationKey, &gen) {
		return gen
	}
	gen = s.now().UnixNano()
	s.cache.Set(ctx, generationKey, gen, generationTTL)
	return gen
}

// EnqueueInventoryEvent кладёт в outbox событие об изменении остатков товаров.
// Подписчики по нему сбрасывают кэш каталога.
func EnqueueInventoryEvent(ctx context.Context, outbox domain.OutboxRepository, eventType, orderID string, productIDs []int64, at time.Time) error {
	payload, err := json.Marshal(domain.InventoryChange{OrderID: orderID, ProductIDs: productIDs})
	if err != nil {
		return fmt.Errorf("marshal inventory change: %w", err)
	}

	aggregateType, aggregateID := domain.AggregateProduct, ""
	if orderID != "" {
		aggregateType, aggregateID = domain.AggregateOrder, orderID
	} else if len(productIDs) > 0 {
		aggregateID = strconv.FormatInt(productIDs[0], 10)
	}

	_, err = outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at.UTC(),
	})
	return err
}

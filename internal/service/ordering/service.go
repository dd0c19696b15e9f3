// Package ordering управляет жизненным циклом заказов: проверкой по каталогу,
// списанием остатков, оплатой и переходами статусов.
package ordering

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// DefaultLowStockThreshold — остаток, после которого отправляется предупреждение.
const DefaultLowStockThreshold = 10

// CatalogInvalidator сбрасывает кэш каталога для изменённых товаров.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, productIDs ...int64)
}

// Service — сервис оркестрации заказов. Мутирующие операции над одним заказом
// сериализуются по его ID внутри процесса; между процессами конфликт ловит
// версия заказа в хранилище.
type Service struct {
	store             domain.Store
	gateway           domain.PaymentGateway
	notifier          domain.Notifier
	catalog           CatalogInvalidator
	metrics           *metrics.OrderMetrics
	logger            *log.Entry
	locks             *keyedLocks
	retry             RetryConfig
	lowStockThreshold int
	now               func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCatalogInvalidator задаёт кэш каталога, который сбрасывается после изменения остатков.
func WithCatalogInvalidator(catalog CatalogInvalidator) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.lowStockThreshold = threshold
		}
	}
}

// WithRetryConfig задаёт повторы при конфликте версий.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg.normalize()
	}
}

// NewService создаёт сервис заказов.
func NewService(store domain.Store, gateway domain.PaymentGateway, notifier domain.Notifier, opts ...Option) *Service {
	s := &Service{
		store:             store,
		gateway:           gateway,
		notifier:          notifier,
		logger:            log.WithField("component", "ordering"),
		locks:             newKeyedLocks(),
		retry:             DefaultRetryConfig(),
		lowStockThreshold: DefaultLowStockThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withOrderLock выполняет fn, удерживая блокировку заказа orderID.
func (s *Service) withOrderLock(ctx context.Context, orderID string, fn func() error) error {
	unlock, err := s.locks.lock(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

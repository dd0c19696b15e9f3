package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store — in-memory хранилище для локальной разработки и тестов.
// Все репозитории делят одно состояние и один мьютекс; WithinTx держит
// эксклюзивную блокировку на время fn и откатывает изменения по журналу undo.
type Store struct {
	mu sync.RWMutex

	orders        map[string]domain.OrderSnapshot
	orderNumbers  map[string]string
	products      map[int64]domain.Product
	nextProductID int64
	customers     map[int64]domain.Customer
	nextCustomer  int64
	payments      map[string][]domain.Payment
	outbox        map[string]*outboxRecord
	outboxSeq     int64
	timeline      map[string][]domain.TimelineEvent
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		orders:       make(map[string]domain.OrderSnapshot),
		orderNumbers: make(map[string]string),
		products:     make(map[int64]domain.Product),
		customers:    make(map[int64]domain.Customer),
		payments:     make(map[string][]domain.Payment),
		outbox:       make(map[string]*outboxRecord),
		timeline:     make(map[string][]domain.TimelineEvent),
	}
}

// txLog накапливает обратные операции для отката транзакции.
type txLog struct {
	undo []func()
}

func (l *txLog) rollback() {
	for i := len(l.undo) - 1; i >= 0; i-- {
		l.undo[i]()
	}
	l.undo = nil
}

// repos реализует domain.Repositories; tx == nil означает работу вне транзакции.
type repos struct {
	s  *Store
	tx *txLog
}

func (r repos) Orders() domain.OrderRepository       { return &orderRepository{repos: r} }
func (r repos) Products() domain.ProductRepository   { return &productRepository{repos: r} }
func (r repos) Customers() domain.CustomerRepository { return &customerRepository{repos: r} }
func (r repos) Payments() domain.PaymentRepository   { return &paymentRepository{repos: r} }
func (r repos) Outbox() domain.OutboxRepository      { return &outboxRepository{repos: r} }
func (r repos) Timeline() domain.TimelineRepository  { return &timelineRepository{repos: r} }

// lock берёт эксклюзивную блокировку вне транзакции; внутри транзакции она уже удерживается.
func (r repos) lock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r repos) rlock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.RLock()
	return r.s.mu.RUnlock
}

// record запоминает обратную операцию, если идёт транзакция.
func (r repos) record(undo func()) {
	if r.tx != nil {
		r.tx.undo = append(r.tx.undo, undo)
	}
}

func (s *Store) root() repos { return repos{s: s} }

// Orders возвращает репозиторий заказов вне транзакции.
func (s *Store) Orders() domain.OrderRepository { return s.root().Orders() }

// Products возвращает репозиторий каталога вне транзакции.
func (s *Store) Products() domain.ProductRepository { return s.root().Products() }

// Customers возвращает репозиторий клиентов вне транзакции.
func (s *Store) Customers() domain.CustomerRepository { return s.root().Customers() }

// Payments возвращает репозиторий платежей вне транзакции.
func (s *Store) Payments() domain.PaymentRepository { return s.root().Payments() }

// Outbox возвращает outbox-репозиторий вне транзакции.
func (s *Store) Outbox() domain.OutboxRepository { return s.root().Outbox() }

// Timeline возвращает репозиторий таймлайна вне транзакции.
func (s *Store) Timeline() domain.TimelineRepository { return s.root().Timeline() }

// WithinTx выполняет fn атомарно. Внутри fn нельзя обращаться к репозиториям Store
// напрямую, только через tx: блокировка не реентерабельна.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := &txLog{}
	if err := fn(ctx, repos{s: s, tx: log}); err != nil {
		log.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		log.rollback()
		return err
	}
	return nil
}

// Ping всегда успешен для in-memory хранилища.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает.
func (s *Store) Close() error { return nil }

var _ domain.Store = (*Store)(nil)

package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. ErrOrderAlreadyExists, если такой ID или номер уже есть.
	Create(ctx context.Context, order *Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (*Order, error)
	// List возвращает страницу заказов по фильтру.
	List(ctx context.Context, filter OrderFilter) (OrderPage, error)
	// Save применяет обновления с учётом optimistic locking: версия в хранилище должна
	// совпадать с order.Version(). Версию агрегата вызывающий увеличивает после коммита.
	Save(ctx context.Context, order *Order) error
}

// ProductRepository описывает каталог и складские остатки.
type ProductRepository interface {
	Create(ctx context.Context, product Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	// GetMany возвращает найденные товары; отсутствующие ID просто не попадают в map.
	GetMany(ctx context.Context, ids []int64) (map[int64]Product, error)
	List(ctx context.Context, query ProductQuery) ([]Product, error)
	// AdjustInventory атомарно изменяет остаток на delta и возвращает новое значение.
	// Если остаток ушёл бы в минус, возвращает ErrInsufficientInventory и ничего не меняет.
	AdjustInventory(ctx context.Context, id int64, delta int) (int, error)
	// SetInventory задаёт остаток и возвращает предыдущее значение.
	SetInventory(ctx context.Context, id int64, quantity int) (int, error)
}

// CustomerRepository описывает хранилище клиентов.
type CustomerRepository interface {
	Create(ctx context.Context, customer Customer) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
}

// PaymentRepository хранит платёжные записи.
type PaymentRepository interface {
	Create(ctx context.Context, payment Payment) error
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
}

// Repositories объединяет репозитории одной единицы работы.
type Repositories interface {
	Orders() OrderRepository
	Products() ProductRepository
	Customers() CustomerRepository
	Payments() PaymentRepository
	Outbox() OutboxRepository
	Timeline() TimelineRepository
}

// Store — хранилище с поддержкой транзакций. Внутри fn нужно использовать только
// переданный tx; при ошибке fn все изменения откатываются.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxConns        = 25
	defaultMinConns        = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	opTimeout = 5 * time.Second
)

// querier — общий интерфейс pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store оборачивает пул подключений к PostgreSQL. Репозитории работают через pgx,
// миграции через database/sql поверх того же пула.
type Store struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// Open открывает пул, регистрирует NUMERIC <-> decimal и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.MinConns = defaultMinConns
	cfg.MaxConnLifetime = defaultConnMaxLifetime
	cfg.MaxConnIdleTime = defaultConnMaxIdleTime
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// DB возвращает database/sql-обёртку над пулом (миграции, низкоуровневый доступ).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.pool.Ping(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает database/sql-обёртку и пул.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	err := s.db.Close()
	s.pool.Close()
	return err
}

// repos реализует domain.Repositories поверх пула или транзакции.
type repos struct {
	q querier
}

func (r repos) Orders() domain.OrderRepository       { return &orderRepository{q: r.q} }
func (r repos) Products() domain.ProductRepository   { return &productRepository{q: r.q} }
func (r repos) Customers() domain.CustomerRepository { return &customerRepository{q: r.q} }
func (r repos) Payments() domain.PaymentRepository   { return &paymentRepository{q: r.q} }
func (r repos) Outbox() domain.OutboxRepository      { return &outboxRepository{q: r.q} }
func (r repos) Timeline() domain.TimelineRepository  { return &timelineRepository{q: r.q} }

func (s *Store) Orders() domain.OrderRepository       { return repos{q: s.pool}.Orders() }
func (s *Store) Products() domain.ProductRepository   { return repos{q: s.pool}.Products() }
func (s *Store) Customers() domain.CustomerRepository { return repos{q: s.pool}.Customers() }
func (s *Store) Payments() domain.PaymentRepository   { return repos{q: s.pool}.Payments() }
func (s *Store) Outbox() domain.OutboxRepository      { return repos{q: s.pool}.Outbox() }
func (s *Store) Timeline() domain.TimelineRepository  { return repos{q: s.pool}.Timeline() }

// WithinTx выполняет fn в транзакции READ COMMITTED. Ошибка fn или отмена ctx
// приводят к откату.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.PersistenceError("begin tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, repos{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.PersistenceError("commit tx", err)
	}
	return nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.Store = (*Store)(nil)

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type timelineRepository struct {
	q querier
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.q.Exec(ctx, `
		INSERT INTO timeline_events (order_id, type, reason, occurred)
		VALUES ($1,$2,$3,$4)
	`, event.OrderID, event.Type, event.Reason, event.Occurred); err != nil {
		return domain.PersistenceError("append timeline event", err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT order_id, type, reason, occurred
		FROM timeline_events
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, domain.PersistenceError("list timeline events", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TimelineEvent, error) {
		var event domain.TimelineEvent
		err := row.Scan(&event.OrderID, &event.Type, &event.Reason, &event.Occurred)
		event.Occurred = event.Occurred.UTC()
		return event, err
	})
	if err != nil {
		return nil, domain.PersistenceError("scan timeline events", err)
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)

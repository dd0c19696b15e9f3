package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type timelineRepository struct {
	repos
}

// Append добавляет событие в хранилище.
func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.lock()
	defer unlock()

	previous := r.s.timeline[event.OrderID]
	events := append(append([]domain.TimelineEvent(nil), previous...), event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	r.s.timeline[event.OrderID] = events
	r.record(func() { r.s.timeline[event.OrderID] = previous })
	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *timelineRepository) List(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.rlock()
	defer unlock()

	events := r.s.timeline[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)

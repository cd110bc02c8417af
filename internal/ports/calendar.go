package ports

import (
	"context"

	"github.com/bnema/huddle/internal/domain"
)

type BusyIntervalProvider interface {
	Query(ctx context.Context, ids []domain.PersonID, window domain.Interval) (map[domain.PersonID][]domain.Interval, error)
}

type EventScheduler interface {
	Create(ctx context.Context, event domain.EventRequest) error
}

type CalendarSubscriber interface {
	Subscribe(ctx context.Context, id domain.PersonID) error
}

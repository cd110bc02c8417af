package ports

import (
	"context"

	"github.com/bnema/huddle/internal/domain"
)

type HistoryLog interface {
	Entries(ctx context.Context) ([]domain.HistoryEntry, error)
	Append(ctx context.Context, raw string) error
	// Remove deletes the stored entry; when several entries are identical only
	// the oldest one goes.
	Remove(ctx context.Context, entry domain.HistoryEntry) error
}

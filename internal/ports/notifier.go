package ports

import (
	"context"

	"github.com/bnema/huddle/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, report domain.RunReport) error
}

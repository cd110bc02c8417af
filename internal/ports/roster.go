package ports

import (
	"context"

	"github.com/bnema/huddle/internal/domain"
)

type RosterProvider interface {
	List(ctx context.Context) (domain.Roster, error)
}

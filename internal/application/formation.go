package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/bnema/huddle/internal/domain"
)

type FormationResult struct {
	Groups    []domain.Group
	Attempts  int
	Evictions int
}

type Former struct {
	rng    *rand.Rand
	limits domain.FormationLimits
	logger *slog.Logger
}

func NewFormer(rng *rand.Rand, limits domain.FormationLimits, logger *slog.Logger) *Former {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.MaxShuffleAttempts < 1 {
		limits.MaxShuffleAttempts = domain.DefaultMaxShuffleAttempts
	}
	if limits.MaxEvictions < 0 {
		limits.MaxEvictions = 0
	}

	return &Former{rng: rng, limits: limits, logger: logger}
}

func (f *Former) Form(ctx context.Context, roster []domain.PersonID, groupSize int, history *PairingHistory) (FormationResult, error) {
	if groupSize < 2 {
		return FormationResult{}, fmt.Errorf("%w: group size must be greater than 1, got %d", domain.ErrInvalidConfig, groupSize)
	}

	var result FormationResult
	for {
		for attempt := 0; attempt < f.limits.MaxShuffleAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return FormationResult{}, err
			}

			result.Attempts++
			groups := f.partition(roster, groupSize)
			if !admits(history, groups, groupSize) {
				continue
			}

			for _, group := range groups {
				history.Spend(group)
			}
			result.Groups = groups

			f.logger.Info("groups formed", "groups", len(groups), "attempts", result.Attempts, "evictions", result.Evictions)
			return result, nil
		}

		if result.Evictions >= f.limits.MaxEvictions {
			return FormationResult{}, &domain.PartitionExhaustedError{Attempts: result.Attempts, Evictions: result.Evictions}
		}

		if _, err := history.PruneOldest(ctx); err != nil {
			if errors.Is(err, domain.ErrHistoryEmpty) {
				return FormationResult{}, &domain.PartitionExhaustedError{Attempts: result.Attempts, Evictions: result.Evictions}
			}
			return FormationResult{}, fmt.Errorf("evict history: %w", err)
		}
		result.Evictions++
	}
}

func (f *Former) partition(roster []domain.PersonID, groupSize int) []domain.Group {
	shuffled := append([]domain.PersonID(nil), roster...)
	f.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	groups := make([]domain.Group, 0, (len(shuffled)+groupSize-1)/groupSize)
	for start := 0; start < len(shuffled); start += groupSize {
		end := min(start+groupSize, len(shuffled))
		groups = append(groups, domain.Group(shuffled[start:end:end]))
	}
	return groups
}

// admits checks only full groups; a short remainder cannot be filled further.
func admits(history *PairingHistory, groups []domain.Group, groupSize int) bool {
	for _, group := range groups {
		if len(group) < groupSize {
			continue
		}
		if !history.Admits(group) {
			return false
		}
	}
	return true
}

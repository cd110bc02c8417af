package application

import (
	"context"
	"log/slog"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
)

type AvailabilityEngine struct {
	provider  ports.BusyIntervalProvider
	batchSize int
	logger    *slog.Logger
}

func NewAvailabilityEngine(provider ports.BusyIntervalProvider, batchSize int, logger *slog.Logger) *AvailabilityEngine {
	if batchSize < 1 {
		batchSize = domain.DefaultFreeBusyBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AvailabilityEngine{provider: provider, batchSize: batchSize, logger: logger}
}

func (e *AvailabilityEngine) Compute(ctx context.Context, roster []domain.PersonID, slots []domain.TimeSlot) (domain.AvailabilityMap, error) {
	availability := make(domain.AvailabilityMap, 0, len(slots))
	for _, slot := range slots {
		free := make(map[domain.PersonID]struct{}, len(roster))
		for _, id := range roster {
			free[id] = struct{}{}
		}
		availability = append(availability, domain.SlotAvailability{Slot: slot, Free: free})
	}
	if len(slots) == 0 {
		return availability, nil
	}

	window := domain.Window(slots)
	for start := 0; start < len(roster); start += e.batchSize {
		batch := roster[start:min(start+e.batchSize, len(roster))]

		busy, err := e.provider.Query(ctx, batch, window)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Warn("busy query failed, keeping batch as free", "batch", batch, "error", err)
			continue
		}

		for id, intervals := range busy {
			for _, interval := range intervals {
				for _, entry := range availability {
					if entry.Slot.Overlaps(interval) {
						delete(entry.Free, id)
					}
				}
			}
		}
	}

	kept := availability[:0]
	for _, entry := range availability {
		if len(entry.Free) < domain.MinFreePerSlot {
			e.logger.Debug("dropping slot", "start", entry.Slot.Start, "free", len(entry.Free))
			continue
		}
		kept = append(kept, entry)
	}

	return kept, nil
}

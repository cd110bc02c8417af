package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
	"github.com/google/uuid"
)

type Assigner struct {
	scheduler ports.EventScheduler
	history   *PairingHistory
	rng       *rand.Rand
	logger    *slog.Logger
}

func NewAssigner(scheduler ports.EventScheduler, history *PairingHistory, rng *rand.Rand, logger *slog.Logger) *Assigner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Assigner{scheduler: scheduler, history: history, rng: rng, logger: logger}
}

func (a *Assigner) Assign(ctx context.Context, rc *RunContext, groups []domain.Group) ([]domain.Meeting, error) {
	meetings := make([]domain.Meeting, 0, len(groups))
	for _, group := range groups {
		attendees := rc.Directory.People(group)

		if len(group) < rc.GroupSize {
			a.logger.Info("not enough people in group", "group", group)
			meetings = append(meetings, domain.Meeting{Status: domain.MeetingNoGroup, Attendees: attendees})
			continue
		}

		candidates := rc.Availability.Candidates(group)
		if len(candidates) == 0 {
			a.logger.Info("no time found for group", "group", group)
			meetings = append(meetings, domain.Meeting{Status: domain.MeetingNoTime, Attendees: attendees})
			continue
		}

		slot := candidates[a.rng.IntN(len(candidates))]
		meetings = append(meetings, domain.Meeting{Status: domain.MeetingScheduled, Slot: &slot, Attendees: attendees})
		a.logger.Info("meeting scheduled", "start", slot.Start, "group", group)

		if err := a.history.Record(ctx, group); err != nil {
			return nil, fmt.Errorf("record group: %w", err)
		}

		event := domain.EventRequest{
			ID:          strings.ReplaceAll(uuid.NewString(), "-", ""),
			Summary:     eventSummary(attendees),
			Description: eventDescription(rc.Icebreaker),
			Slot:        slot,
			Attendees:   attendees,
		}
		if err := a.scheduler.Create(ctx, event); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Error("create calendar event failed", "start", slot.Start, "group", group, "error", err)
		}
	}

	return meetings, nil
}

func eventSummary(attendees []domain.Person) string {
	names := make([]string, 0, len(attendees))
	for _, person := range attendees {
		names = append(names, person.DisplayName())
	}
	return "Huddle: " + strings.Join(names, "/")
}

func eventDescription(icebreaker string) string {
	if icebreaker == "" {
		return ""
	}
	return "Icebreaker question: " + icebreaker
}

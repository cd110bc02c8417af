package domain

import (
	"fmt"
	"time"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingNoTime    MeetingStatus = "no_time"
	MeetingNoGroup   MeetingStatus = "no_group"
)

type Meeting struct {
	Status    MeetingStatus `json:"status" yaml:"status"`
	Slot      *TimeSlot     `json:"slot,omitempty" yaml:"slot,omitempty"`
	Attendees []Person      `json:"attendees" yaml:"attendees"`
}

type EventRequest struct {
	ID          string
	Summary     string
	Description string
	Slot        TimeSlot
	Attendees   []Person
}

type RunReport struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`
	WeekOf     time.Time `json:"week_of" yaml:"week_of"`
	WeeksAhead int       `json:"weeks_ahead" yaml:"weeks_ahead"`
	Icebreaker string    `json:"icebreaker,omitempty" yaml:"icebreaker,omitempty"`
	Attempts   int       `json:"attempts" yaml:"attempts"`
	Evictions  int       `json:"evictions" yaml:"evictions"`
	Meetings   []Meeting `json:"meetings" yaml:"meetings"`
}

func (r RunReport) Count(status MeetingStatus) int {
	n := 0
	for _, meeting := range r.Meetings {
		if meeting.Status == status {
			n++
		}
	}
	return n
}

type FormationLimits struct {
	MaxShuffleAttempts int
	MaxEvictions       int
}

const (
	DefaultMaxShuffleAttempts = 1000
	DefaultMaxEvictions       = 100
	DefaultFreeBusyBatchSize  = 5
)

type Settings struct {
	GroupSize         int
	Formation         FormationLimits
	Slots             SlotPlan
	FreeBusyBatchSize int
	Icebreakers       []string
}

func (s Settings) Validate() error {
	if s.GroupSize < 2 {
		return fmt.Errorf("%w: group size must be greater than 1, got %d", ErrInvalidConfig, s.GroupSize)
	}
	if s.Formation.MaxShuffleAttempts < 1 {
		return fmt.Errorf("%w: max shuffle attempts must be positive", ErrInvalidConfig)
	}
	if s.Formation.MaxEvictions < 0 {
		return fmt.Errorf("%w: max evictions must not be negative", ErrInvalidConfig)
	}
	if s.FreeBusyBatchSize < 1 {
		return fmt.Errorf("%w: freebusy batch size must be positive", ErrInvalidConfig)
	}
	return s.Slots.Validate()
}

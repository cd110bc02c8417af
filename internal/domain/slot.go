package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const BoundaryGuard = time.Minute

type TimeSlot struct {
	Start    time.Time     `json:"start" yaml:"start"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func (s TimeSlot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Overlaps reports whether a busy interval takes the slot away, tolerating
// BoundaryGuard of overlap on either edge.
func (s TimeSlot) Overlaps(busy Interval) bool {
	return !busy.Start.After(s.End().Add(-BoundaryGuard)) && !busy.End.Before(s.Start.Add(BoundaryGuard))
}

type Interval struct {
	Start time.Time
	End   time.Time
}

func Window(slots []TimeSlot) Interval {
	var window Interval
	for i, slot := range slots {
		if i == 0 || slot.Start.Before(window.Start) {
			window.Start = slot.Start
		}
		if i == 0 || slot.End().After(window.End) {
			window.End = slot.End()
		}
	}
	return window
}

type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: start time %q must be HH:MM", ErrInvalidConfig, raw)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(raw string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if day, ok := weekdays[key]; ok {
		return day, nil
	}
	for name, day := range weekdays {
		if len(key) >= 3 && strings.HasPrefix(name, key) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidConfig, raw)
}

type SlotPlan struct {
	Weekdays   []time.Weekday
	StartTimes []TimeOfDay
	WeeksAhead int
	Duration   time.Duration
	Location   *time.Location
}

func (p SlotPlan) Validate() error {
	if len(p.Weekdays) == 0 {
		return fmt.Errorf("%w: at least one weekday is required", ErrInvalidConfig)
	}
	if len(p.StartTimes) == 0 {
		return fmt.Errorf("%w: at least one start time is required", ErrInvalidConfig)
	}
	if p.WeeksAhead < 0 {
		return fmt.Errorf("%w: weeks ahead must not be negative", ErrInvalidConfig)
	}
	if p.Duration <= 2*BoundaryGuard {
		return fmt.Errorf("%w: meeting duration must exceed %s", ErrInvalidConfig, 2*BoundaryGuard)
	}
	return nil
}

func (p SlotPlan) Slots(now time.Time) []TimeSlot {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	seen := make(map[time.Time]struct{})
	slots := make([]TimeSlot, 0, len(p.Weekdays)*len(p.StartTimes))
	for _, day := range p.Weekdays {
		offset := (int(day) - int(today.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		offset += 7 * p.WeeksAhead

		date := today.AddDate(0, 0, offset)
		for _, start := range p.StartTimes {
			at := time.Date(date.Year(), date.Month(), date.Day(), start.Hour, start.Minute, 0, 0, loc).UTC()
			if _, ok := seen[at]; ok {
				continue
			}
			seen[at] = struct{}{}
			slots = append(slots, TimeSlot{Start: at, Duration: p.Duration})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})

	return slots
}

package toml

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/huddle/internal/domain"
)

type Config struct {
	Settings domain.Settings
	Calendar CalendarConfig
	History  HistoryConfig
	Email    EmailConfig
	People   domain.Roster
}

type CalendarConfig struct {
	ID            string
	BaseURL       string
	TokenRef      string
	MutationPause time.Duration
}

type HistoryConfig struct {
	Backend string
	Path    string
}

type EmailConfig struct {
	Enabled         bool
	From            string
	SMTPHost        string
	SMTPPort        int
	Username        string
	PasswordRef     string
	Subject         string
	DisplayLocation *time.Location
	Templates       Templates
}

type Templates struct {
	Default string
	NoTime  string
	NoGroup string
}

func toConfig(file fileSchema) (Config, error) {
	loc, err := time.LoadLocation(file.Calendar.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("%w: calendar timezone %q: %v", domain.ErrInvalidConfig, file.Calendar.Timezone, err)
	}

	weekdays := make([]time.Weekday, 0, len(file.Calendar.DaysOfWeek))
	for _, raw := range file.Calendar.DaysOfWeek {
		day, err := domain.ParseWeekday(raw)
		if err != nil {
			return Config{}, err
		}
		weekdays = append(weekdays, day)
	}

	starts := make([]domain.TimeOfDay, 0, len(file.Calendar.StartTimes))
	for _, raw := range file.Calendar.StartTimes {
		start, err := domain.ParseTimeOfDay(raw)
		if err != nil {
			return Config{}, err
		}
		starts = append(starts, start)
	}

	pause, err := time.ParseDuration(file.Calendar.MutationPause)
	if err != nil {
		return Config{}, fmt.Errorf("%w: calendar mutation_pause %q: %v", domain.ErrInvalidConfig, file.Calendar.MutationPause, err)
	}

	display := loc
	if tz := strings.TrimSpace(file.Email.DisplayTimezone); tz != "" {
		display, err = time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("%w: email display_timezone %q: %v", domain.ErrInvalidConfig, tz, err)
		}
	}

	return Config{
		Settings: domain.Settings{
			GroupSize: file.GroupSize,
			Formation: domain.FormationLimits{
				MaxShuffleAttempts: file.Formation.MaxShuffleAttempts,
				MaxEvictions:       file.Formation.MaxEvictions,
			},
			Slots: domain.SlotPlan{
				Weekdays:   weekdays,
				StartTimes: starts,
				WeeksAhead: file.WeeksAhead,
				Duration:   time.Duration(file.Calendar.DurationMinutes) * time.Minute,
				Location:   loc,
			},
			FreeBusyBatchSize: file.Calendar.FreeBusyBatchSize,
			Icebreakers:       append([]string(nil), file.Icebreakers...),
		},
		Calendar: CalendarConfig{
			ID:            file.Calendar.ID,
			BaseURL:       file.Calendar.BaseURL,
			TokenRef:      file.Calendar.TokenRef,
			MutationPause: pause,
		},
		History: HistoryConfig{
			Backend: file.History.Backend,
			Path:    file.History.Path,
		},
		Email: EmailConfig{
			Enabled:         file.Email.Enabled,
			From:            file.Email.From,
			SMTPHost:        file.Email.SMTPHost,
			SMTPPort:        file.Email.SMTPPort,
			Username:        file.Email.Username,
			PasswordRef:     file.Email.PasswordRef,
			Subject:         file.Email.Subject,
			DisplayLocation: display,
			Templates: Templates{
				Default: file.Email.Templates.Default,
				NoTime:  file.Email.Templates.NoTime,
				NoGroup: file.Email.Templates.NoGroup,
			},
		},
		People: toRoster(file.People),
	}, nil
}

func toRoster(people []personSchema) domain.Roster {
	roster := make(domain.Roster, 0, len(people))
	for _, person := range people {
		roster = append(roster, domain.Person{
			ID:   domain.PersonID(strings.TrimSpace(person.Email)),
			Name: strings.TrimSpace(person.Name),
		})
	}
	return roster
}

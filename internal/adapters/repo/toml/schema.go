package toml

import (
	"fmt"

	"github.com/bnema/huddle/internal/domain"
)

const currentSchemaVersion = 1

const (
	defaultGroupSize       = 2
	defaultDurationMinutes = 30
	defaultTimezone        = "UTC"
	defaultMutationPause   = "1s"
	defaultHistoryBackend  = "text"
	defaultSMTPPort        = 587
	defaultSubject         = "Huddle: Mission Briefing"
)

type fileSchema struct {
	Version     int             `toml:"version"`
	GroupSize   int             `toml:"group_size"`
	WeeksAhead  int             `toml:"weeks_ahead"`
	Icebreakers []string        `toml:"icebreakers,omitempty"`
	Formation   formationSchema `toml:"formation"`
	Calendar    calendarSchema  `toml:"calendar"`
	History     historySchema   `toml:"history"`
	Email       emailSchema     `toml:"email"`
	People      []personSchema  `toml:"people"`
}

type formationSchema struct {
	MaxShuffleAttempts int `toml:"max_shuffle_attempts"`
	MaxEvictions       int `toml:"max_evictions"`
}

type calendarSchema struct {
	ID                string   `toml:"id"`
	BaseURL           string   `toml:"base_url,omitempty"`
	TokenRef          string   `toml:"token_ref,omitempty"`
	DurationMinutes   int      `toml:"duration_minutes"`
	DaysOfWeek        []string `toml:"days_of_week"`
	StartTimes        []string `toml:"start_times"`
	Timezone          string   `toml:"timezone"`
	FreeBusyBatchSize int      `toml:"freebusy_batch_size"`
	MutationPause     string   `toml:"mutation_pause"`
}

type historySchema struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`
}

type emailSchema struct {
	Enabled         bool            `toml:"enabled"`
	From            string          `toml:"from,omitempty"`
	SMTPHost        string          `toml:"smtp_host,omitempty"`
	SMTPPort        int             `toml:"smtp_port"`
	Username        string          `toml:"username,omitempty"`
	PasswordRef     string          `toml:"password_ref,omitempty"`
	Subject         string          `toml:"subject"`
	DisplayTimezone string          `toml:"display_timezone,omitempty"`
	Templates       templatesSchema `toml:"templates"`
}

type templatesSchema struct {
	Default string `toml:"default,omitempty"`
	NoTime  string `toml:"no_time,omitempty"`
	NoGroup string `toml:"no_group,omitempty"`
}

type personSchema struct {
	Email string `toml:"email"`
	Name  string `toml:"name,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.GroupSize == 0 {
		s.GroupSize = defaultGroupSize
	}
	if s.Formation.MaxShuffleAttempts == 0 {
		s.Formation.MaxShuffleAttempts = domain.DefaultMaxShuffleAttempts
	}
	if s.Formation.MaxEvictions == 0 {
		s.Formation.MaxEvictions = domain.DefaultMaxEvictions
	}
	if s.Calendar.DurationMinutes == 0 {
		s.Calendar.DurationMinutes = defaultDurationMinutes
	}
	if s.Calendar.Timezone == "" {
		s.Calendar.Timezone = defaultTimezone
	}
	if s.Calendar.FreeBusyBatchSize == 0 {
		s.Calendar.FreeBusyBatchSize = domain.DefaultFreeBusyBatchSize
	}
	if s.Calendar.MutationPause == "" {
		s.Calendar.MutationPause = defaultMutationPause
	}
	if s.History.Backend == "" {
		s.History.Backend = defaultHistoryBackend
	}
	if s.Email.SMTPPort == 0 {
		s.Email.SMTPPort = defaultSMTPPort
	}
	if s.Email.Subject == "" {
		s.Email.Subject = defaultSubject
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported huddle schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

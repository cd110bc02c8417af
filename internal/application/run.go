package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
	"github.com/google/uuid"
)

type RunContext struct {
	ID           string
	DryRun       bool
	GroupSize    int
	Directory    domain.Directory
	Slots        []domain.TimeSlot
	Availability domain.AvailabilityMap
	Icebreaker   string
}

type RunDependencies struct {
	Roster    ports.RosterProvider
	History   ports.HistoryLog
	Busy      ports.BusyIntervalProvider
	Events    ports.EventScheduler
	Calendars ports.CalendarSubscriber
	Notifier  ports.Notifier
	Clock     ports.Clock
	Logger    *slog.Logger
}

type RunService struct {
	roster    ports.RosterProvider
	history   ports.HistoryLog
	busy      ports.BusyIntervalProvider
	events    ports.EventScheduler
	calendars ports.CalendarSubscriber
	notifier  ports.Notifier
	clock     ports.Clock
	logger    *slog.Logger
}

type RunPhase string

const (
	PhaseLoadingHistory     RunPhase = "Loading history..."
	PhaseFormingGroups      RunPhase = "Creating groups..."
	PhaseCheckingCalendars  RunPhase = "Checking calendars..."
	PhaseSchedulingMeetings RunPhase = "Scheduling meetings..."
	PhaseSendingEmails      RunPhase = "Sending emails..."
)

type RunOptions struct {
	Settings domain.Settings
	DryRun   bool
	Rand     *rand.Rand
	// Progress is called from the run goroutine as each phase starts.
	Progress func(RunPhase)
}

func (o RunOptions) enter(phase RunPhase) {
	if o.Progress != nil {
		o.Progress(phase)
	}
}

func NewRunService(deps RunDependencies) *RunService {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &RunService{
		roster:    deps.Roster,
		history:   deps.History,
		busy:      deps.Busy,
		events:    deps.Events,
		calendars: deps.Calendars,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

func (s *RunService) Slots(settings domain.Settings) []domain.TimeSlot {
	return settings.Slots.Slots(s.clock.Now())
}

func (s *RunService) Run(ctx context.Context, opts RunOptions) (domain.RunReport, error) {
	settings := opts.Settings
	if err := settings.Validate(); err != nil {
		return domain.RunReport{}, err
	}

	roster, err := s.roster.List(ctx)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("list roster: %w", err)
	}
	if err := roster.Validate(); err != nil {
		return domain.RunReport{}, err
	}

	rng := opts.Rand
	if rng == nil {
		seed := uint64(s.clock.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	rc := &RunContext{
		ID:        uuid.NewString(),
		DryRun:    opts.DryRun,
		GroupSize: settings.GroupSize,
		Directory: domain.NewDirectory(roster),
	}
	logger := s.logger.With("run_id", rc.ID)
	logger.Info("run started", "people", len(roster), "group_size", settings.GroupSize, "dry_run", opts.DryRun)

	opts.enter(PhaseLoadingHistory)
	history := NewPairingHistory(s.history, logger, opts.DryRun)
	if err := history.Load(ctx); err != nil {
		return domain.RunReport{}, fmt.Errorf("load history: %w", err)
	}

	s.subscribeCalendars(ctx, rc, roster, history, logger)

	if len(settings.Icebreakers) > 0 {
		rc.Icebreaker = settings.Icebreakers[rng.IntN(len(settings.Icebreakers))]
	}

	opts.enter(PhaseFormingGroups)
	formation, err := NewFormer(rng, settings.Formation, logger).Form(ctx, roster.IDs(), settings.GroupSize, history)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("form groups: %w", err)
	}

	opts.enter(PhaseCheckingCalendars)
	rc.Slots = settings.Slots.Slots(s.clock.Now())
	rc.Availability, err = NewAvailabilityEngine(s.busy, settings.FreeBusyBatchSize, logger).Compute(ctx, roster.IDs(), rc.Slots)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("compute availability: %w", err)
	}
	logger.Info("availability computed", "slots", len(rc.Slots), "usable", len(rc.Availability))

	scheduler := s.events
	if opts.DryRun || scheduler == nil {
		scheduler = loggingScheduler{logger: logger}
	}

	opts.enter(PhaseSchedulingMeetings)
	meetings, err := NewAssigner(scheduler, history, rng, logger).Assign(ctx, rc, formation.Groups)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("assign meetings: %w", err)
	}

	report := domain.RunReport{
		RunID:      rc.ID,
		DryRun:     opts.DryRun,
		WeeksAhead: settings.Slots.WeeksAhead,
		Icebreaker: rc.Icebreaker,
		Attempts:   formation.Attempts,
		Evictions:  formation.Evictions,
		Meetings:   meetings,
	}
	if len(rc.Slots) > 0 {
		report.WeekOf = rc.Slots[0].Start
	}

	if !opts.DryRun && s.notifier != nil {
		opts.enter(PhaseSendingEmails)
		if err := s.notifier.Notify(ctx, report); err != nil {
			logger.Error("notification failed", "error", err)
		}
	}

	logger.Info("run finished",
		"scheduled", report.Count(domain.MeetingScheduled),
		"no_time", report.Count(domain.MeetingNoTime),
		"no_group", report.Count(domain.MeetingNoGroup),
	)

	return report, nil
}

func (s *RunService) subscribeCalendars(ctx context.Context, rc *RunContext, roster domain.Roster, history *PairingHistory, logger *slog.Logger) {
	if rc.DryRun || s.calendars == nil {
		return
	}

	for _, person := range roster {
		if history.KnownMember(person.ID) {
			continue
		}
		if err := s.calendars.Subscribe(ctx, person.ID); err != nil {
			logger.Warn("subscribe calendar failed", "person", person.ID, "error", err)
			continue
		}
		logger.Info("calendar subscribed", "person", person.ID)
	}
}

type loggingScheduler struct {
	logger *slog.Logger
}

func (l loggingScheduler) Create(_ context.Context, event domain.EventRequest) error {
	l.logger.Info("event not created", "summary", event.Summary, "start", event.Slot.Start)
	return nil
}

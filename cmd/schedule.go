package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/huddle/internal/application"
	"github.com/bnema/huddle/internal/domain"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const scheduleJobName = "huddle-run"

type scheduleFlags struct {
	cron     string
	timezone string
	dryRun   bool
	preview  int
}

func newScheduleCmd(app *app) *cobra.Command {
	var flags scheduleFlags

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run on a cron cadence until interrupted",
		Long:  "Registers a recurring run. Runs never overlap: a run still in progress when the next one is due pushes it to the following fire time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expr, schedule, err := parseCadence(flags.cron, flags.timezone)
			if err != nil {
				return err
			}

			if flags.preview > 0 {
				return printNextRuns(cmd.OutOrStdout(), schedule, app.clock.Now(), flags.preview)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.schedule(ctx, cmd.OutOrStdout(), expr, schedule, flags.dryRun)
		},
	}

	cmd.Flags().StringVar(&flags.cron, "cron", "", "Five-field cron expression, e.g. \"0 9 * * 1\"")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "UTC", "Time zone the cron expression is read in")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Schedule dry runs")
	cmd.Flags().IntVar(&flags.preview, "preview", 0, "Print the next N fire times and exit")
	_ = cmd.MarkFlagRequired("cron")

	return cmd
}

func parseCadence(expr, timezone string) (string, cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=") {
		return "", nil, fmt.Errorf("%w: use --timezone instead of a TZ prefix", domain.ErrInvalidConfig)
	}

	if _, err := time.LoadLocation(timezone); err != nil {
		return "", nil, fmt.Errorf("%w: timezone %q: %v", domain.ErrInvalidConfig, timezone, err)
	}

	withTZ := fmt.Sprintf("CRON_TZ=%s %s", timezone, expr)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(withTZ)
	if err != nil {
		return "", nil, fmt.Errorf("%w: cron expression %q: %v", domain.ErrInvalidConfig, expr, err)
	}

	return withTZ, schedule, nil
}

func printNextRuns(w io.Writer, schedule cron.Schedule, now time.Time, n int) error {
	next := now
	for i := 0; i < n; i++ {
		next = schedule.Next(next)
		if _, err := fmt.Fprintln(w, next.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) schedule(ctx context.Context, out io.Writer, expr string, schedule cron.Schedule, dryRun bool) error {
	logger := a.logger.With("component", "schedule")

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			report, err := a.scheduledRun(ctx, dryRun)
			if err != nil {
				logger.Error("scheduled run failed", "error", err)
				return
			}
			logger.Info("scheduled run done", "run_id", report.RunID, "scheduled", report.Count(domain.MeetingScheduled))
		}),
		gocron.WithName(scheduleJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
				logger.Error("job failed", "job_id", jobID, "job", jobName, "error", err)
			}),
		),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("register run job: %w", err)
	}

	scheduler.Start()
	_, _ = fmt.Fprintf(out, "next run: %s\n", schedule.Next(a.clock.Now()).UTC().Format(time.RFC3339))

	<-ctx.Done()
	logger.Info("stopping scheduler")
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

func (a *app) scheduledRun(ctx context.Context, dryRun bool) (domain.RunReport, error) {
	config, err := a.repo.Load(ctx)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("reload %s: %w", a.repo.Path(), err)
	}

	fire := *a
	fire.config = config
	return fire.run(ctx, io.Discard, application.RunOptions{Settings: config.Settings, DryRun: dryRun})
}

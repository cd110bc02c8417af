package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	reportadapter "github.com/bnema/huddle/internal/adapters/render/report"
	"github.com/bnema/huddle/internal/application"
	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type runFlags struct {
	dryRun     bool
	seed       uint64
	weeksAhead int
	output     string
}

func newRunCmd(app *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Form groups, book meetings and notify everyone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(flags.output); err != nil {
				return err
			}

			opts := application.RunOptions{
				Settings: app.config.Settings,
				DryRun:   flags.dryRun,
			}
			if cmd.Flags().Changed("weeks-ahead") {
				opts.Settings.Slots.WeeksAhead = flags.weeksAhead
			}
			if cmd.Flags().Changed("seed") {
				opts.Rand = rand.New(rand.NewPCG(flags.seed, flags.seed))
			}

			report, err := app.run(cmd.Context(), cmd.ErrOrStderr(), opts)
			if err != nil {
				return err
			}

			return writeReport(cmd.OutOrStdout(), app, report, flags.output)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Form groups and find slots without writing history, creating events or sending email")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "Seed for shuffling and picks (default: clock based)")
	cmd.Flags().IntVar(&flags.weeksAhead, "weeks-ahead", 0, "Override weeks_ahead from the config file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputText, "Output format (text|json|yaml)")

	return cmd
}

func (a *app) run(ctx context.Context, progress io.Writer, opts application.RunOptions) (domain.RunReport, error) {
	history, closeHistory, err := a.openHistory(ctx)
	if err != nil {
		return domain.RunReport{}, err
	}
	defer func() {
		if err := closeHistory(); err != nil {
			a.logger.Warn("close history failed", "error", err)
		}
	}()

	logger := a.logger
	if isTerminal(progress) {
		logger = logging.WithMinLevel(logger, slog.LevelWarn)
	}

	service, err := a.newRunService(history, logger)
	if err != nil {
		return domain.RunReport{}, err
	}

	var report domain.RunReport
	err = runWithProgress(ctx, progress, func(ctx context.Context, onPhase func(application.RunPhase)) error {
		opts.Progress = onPhase
		var runErr error
		report, runErr = service.Run(ctx, opts)
		return runErr
	})
	return report, err
}

func validateOutput(output string) error {
	switch output {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("%w: unsupported output %q (text|json|yaml)", domain.ErrInvalidConfig, output)
	}
}

func writeReport(w io.Writer, app *app, report domain.RunReport, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	rendered, err := app.reportRenderer(report, reportadapter.RenderOptions{Location: app.config.Settings.Slots.Location})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	_, err = fmt.Fprintln(w, strings.TrimRight(rendered, "\n"))
	return err
}

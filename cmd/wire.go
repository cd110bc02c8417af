package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	googlecal "github.com/bnema/huddle/internal/adapters/calendar/google"
	sqlitehistory "github.com/bnema/huddle/internal/adapters/history/sqlite"
	texthistory "github.com/bnema/huddle/internal/adapters/history/text"
	emailnotify "github.com/bnema/huddle/internal/adapters/notify/email"
	reportadapter "github.com/bnema/huddle/internal/adapters/render/report"
	tomlrepo "github.com/bnema/huddle/internal/adapters/repo/toml"
	chainstore "github.com/bnema/huddle/internal/adapters/secrets/chain"
	"github.com/bnema/huddle/internal/application"
	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/logging"
	"github.com/bnema/huddle/internal/ports"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	logLevelKey  = "log.level"
	logFormatKey = "log.format"

	historyBackendText   = "text"
	historyBackendSQLite = "sqlite"
)

type app struct {
	repo           *tomlrepo.Repository
	config         tomlrepo.Config
	secretStore    ports.SecretStore
	logger         *slog.Logger
	clock          ports.Clock
	reportRenderer func(domain.RunReport, reportadapter.RenderOptions) (string, error)
}

func wireApp(ctx context.Context, cfg *viper.Viper, logOutput io.Writer) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire config repository: %w", err)
	}

	logger, err := logging.New(logOutput, logging.Options{
		Level:  cfg.GetString(logLevelKey),
		Format: cfg.GetString(logFormatKey),
	})
	if err != nil {
		return nil, err
	}

	config, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", repo.Path(), err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, ".huddle", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		repo:           repo,
		config:         config,
		secretStore:    secretStore,
		logger:         logger,
		clock:          ports.SystemClock{},
		reportRenderer: reportadapter.Render,
	}, nil
}

func (a *app) openHistory(ctx context.Context) (ports.HistoryLog, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(a.config.History.Backend)) {
	case "", historyBackendText:
		log, err := texthistory.New(a.config.History.Path)
		if err != nil {
			return nil, noop, err
		}
		return log, noop, nil
	case historyBackendSQLite:
		log, err := sqlitehistory.Open(ctx, a.config.History.Path, a.clock)
		if err != nil {
			return nil, noop, err
		}
		return log, log.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown history backend %q", domain.ErrInvalidConfig, a.config.History.Backend)
	}
}

func (a *app) newCalendarClient(logger *slog.Logger) (*googlecal.Client, error) {
	return googlecal.NewClient(googlecal.Options{
		BaseURL:       a.config.Calendar.BaseURL,
		CalendarID:    a.config.Calendar.ID,
		Secrets:       a.secretStore,
		TokenRef:      a.config.Calendar.TokenRef,
		MutationPause: a.config.Calendar.MutationPause,
		Logger:        logger.With("component", "calendar"),
	})
}

func (a *app) newNotifier(logger *slog.Logger) (ports.Notifier, error) {
	email := a.config.Email
	if !email.Enabled {
		return nil, nil
	}

	notifier, err := emailnotify.NewNotifier(emailnotify.Options{
		From:        email.From,
		Host:        email.SMTPHost,
		Port:        email.SMTPPort,
		Username:    email.Username,
		Secrets:     a.secretStore,
		PasswordRef: email.PasswordRef,
		Subject:     email.Subject,
		Templates: emailnotify.Templates{
			Default: email.Templates.Default,
			NoTime:  email.Templates.NoTime,
			NoGroup: email.Templates.NoGroup,
		},
		Clock:    a.clock,
		Logger:   logger.With("component", "email"),
		Location: email.DisplayLocation,
	})
	if err != nil {
		return nil, err
	}
	return notifier, nil
}

func (a *app) newRunService(history ports.HistoryLog, logger *slog.Logger) (*application.RunService, error) {
	calendar, err := a.newCalendarClient(logger)
	if err != nil {
		return nil, err
	}

	notifier, err := a.newNotifier(logger)
	if err != nil {
		return nil, err
	}

	return application.NewRunService(application.RunDependencies{
		Roster:    a.repo,
		History:   history,
		Busy:      calendar,
		Events:    calendar,
		Calendars: calendar,
		Notifier:  notifier,
		Clock:     a.clock,
		Logger:    logger,
	}), nil
}

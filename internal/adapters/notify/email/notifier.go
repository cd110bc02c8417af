package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
)

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

type Options struct {
	From        string
	Host        string
	Port        int
	Username    string
	Secrets     ports.SecretStore
	PasswordRef string
	Subject     string
	Templates   Templates
	Clock       ports.Clock
	Logger      *slog.Logger
	Location    *time.Location
}

type Notifier struct {
	opts     Options
	renderer *renderer
	send     sendFunc
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(opts Options) (*Notifier, error) {
	if _, err := mail.ParseAddress(opts.From); err != nil {
		return nil, fmt.Errorf("%w: email from %q: %v", domain.ErrInvalidConfig, opts.From, err)
	}
	if opts.PasswordRef != "" && opts.Secrets == nil {
		return nil, fmt.Errorf("%w: email password_ref set without a secret store", domain.ErrInvalidConfig)
	}

	renderer, err := newRenderer(opts.Templates, opts.Location)
	if err != nil {
		return nil, err
	}

	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{opts: opts, renderer: renderer, send: smtp.SendMail, logger: logger}, nil
}

func (n *Notifier) Notify(ctx context.Context, report domain.RunReport) error {
	auth, err := n.auth(ctx)
	if err != nil {
		return err
	}

	sent, failed := 0, 0
	for _, meeting := range report.Meetings {
		body, err := n.renderer.render(meeting, report)
		if err != nil {
			return err
		}

		for _, person := range meeting.Attendees {
			if err := ctx.Err(); err != nil {
				return err
			}

			msg := message{
				From:    n.opts.From,
				To:      mail.Address{Name: person.Name, Address: string(person.ID)},
				Subject: n.opts.Subject,
				Body:    body,
				Date:    n.opts.Clock.Now(),
			}
			if err := n.deliver(auth, msg); err != nil {
				failed++
				n.logger.Error("email delivery failed", "to", person.ID, "status", meeting.Status, "error", err)
				continue
			}
			sent++
		}
	}

	n.logger.Info("notifications sent", "sent", sent, "failed", failed)
	return nil
}

func (n *Notifier) deliver(auth smtp.Auth, msg message) error {
	data, err := msg.bytes()
	if err != nil {
		return err
	}

	if n.opts.Host == "" {
		n.logger.Info("smtp not configured, email not sent", "to", msg.To.Address, "subject", msg.Subject)
		return nil
	}

	addr := net.JoinHostPort(n.opts.Host, strconv.Itoa(n.opts.Port))
	if err := n.send(addr, auth, n.opts.From, []string{msg.To.Address}, data); err != nil {
		return fmt.Errorf("send to %s: %w", msg.To.Address, err)
	}
	return nil
}

func (n *Notifier) auth(ctx context.Context) (smtp.Auth, error) {
	if n.opts.Host == "" || n.opts.Username == "" {
		return nil, nil
	}

	password := ""
	if n.opts.PasswordRef != "" {
		var err error
		password, err = n.opts.Secrets.Get(ctx, n.opts.PasswordRef)
		if err != nil {
			return nil, fmt.Errorf("read smtp password: %w", err)
		}
	}

	return smtp.PlainAuth("", n.opts.Username, password, n.opts.Host), nil
}

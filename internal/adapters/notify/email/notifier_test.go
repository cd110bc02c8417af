package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  []byte
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticSecrets map[string]string

func (s staticSecrets) Get(_ context.Context, key string) (string, error) {
	value, ok := s[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s staticSecrets) Put(context.Context, string, string) error { return nil }
func (s staticSecrets) Delete(context.Context, string) error      { return nil }

func newYork(t *testing.T) *time.Location {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func testReport() domain.RunReport {
	slot := domain.TimeSlot{Start: time.Date(2026, time.October, 21, 19, 4, 0, 0, time.UTC), Duration: 30 * time.Minute}
	return domain.RunReport{
		RunID:      "run-1",
		WeeksAhead: 1,
		Icebreaker: "Best bug?",
		Meetings: []domain.Meeting{
			{Status: domain.MeetingScheduled, Slot: &slot, Attendees: []domain.Person{{ID: "ada@example.com", Name: "Ada"}, {ID: "bob@example.com", Name: "Bob"}}},
			{Status: domain.MeetingNoTime, Attendees: []domain.Person{{ID: "cy@example.com", Name: "Cy"}, {ID: "dee@example.com"}}},
			{Status: domain.MeetingNoGroup, Attendees: []domain.Person{{ID: "eve@example.com", Name: "Eve"}}},
		},
	}
}

func newTestNotifier(t *testing.T, templates Templates) (*Notifier, *[]sentMail) {
	t.Helper()

	notifier, err := NewNotifier(Options{
		From:        "Huddle <huddle@example.com>",
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "apikey",
		Secrets:     staticSecrets{"env://HUDDLE_SMTP_PASSWORD": "hunter2"},
		PasswordRef: "env://HUDDLE_SMTP_PASSWORD",
		Subject:     "Huddle: Mission Briefing",
		Templates:   templates,
		Clock:       fixedClock{now: time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)},
		Logger:      logging.Discard(),
		Location:    newYork(t),
	})
	require.NoError(t, err)

	var sent []sentMail
	notifier.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, auth: auth, from: from, to: to, msg: msg})
		return nil
	}
	return notifier, &sent
}

func parseParts(t *testing.T, raw []byte) (*mail.Message, map[string]string) {
	t.Helper()

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	parts := map[string]string{}
	reader := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(part)
		require.NoError(t, err)
		contentType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		require.NoError(t, err)
		parts[contentType] = string(body)
	}
	return msg, parts
}

func TestNotifySendsOneMessagePerAttendee(t *testing.T) {
	t.Parallel()

	notifier, sent := newTestNotifier(t, Templates{})
	require.NoError(t, notifier.Notify(context.Background(), testReport()))

	require.Len(t, *sent, 5)
	var recipients []string
	for _, m := range *sent {
		assert.Equal(t, "smtp.example.com:587", m.addr)
		assert.Equal(t, "Huddle <huddle@example.com>", m.from)
		assert.NotNil(t, m.auth)
		recipients = append(recipients, m.to...)
	}
	assert.Equal(t, []string{"ada@example.com", "bob@example.com", "cy@example.com", "dee@example.com", "eve@example.com"}, recipients)
}

func TestNotifyRendersScheduledMeetingInDisplayZone(t *testing.T) {
	t.Parallel()

	notifier, sent := newTestNotifier(t, Templates{})
	require.NoError(t, notifier.Notify(context.Background(), testReport()))

	msg, parts := parseParts(t, (*sent)[0].msg)
	assert.Equal(t, `"Ada" <ada@example.com>`, msg.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Huddle: Mission Briefing", subject)

	plain := parts["text/plain"]
	assert.Contains(t, plain, "Hi Ada and Bob,")
	assert.Contains(t, plain, "**October 21 at 1504**")
	assert.Contains(t, plain, "_Best bug?_")
	assert.Contains(t, parts["text/html"], "<strong>October 21 at 1504</strong>")
	assert.Contains(t, parts["text/html"], "<em>Best bug?</em>")
}

func TestNotifyRendersNoTimeAndNoGroupWithWeeksAhead(t *testing.T) {
	t.Parallel()

	notifier, sent := newTestNotifier(t, Templates{})
	require.NoError(t, notifier.Notify(context.Background(), testReport()))

	_, noTime := parseParts(t, (*sent)[2].msg)
	assert.Contains(t, noTime["text/plain"], "Hi Cy and dee@example.com,")
	assert.Contains(t, noTime["text/plain"], "within the next 2 weeks")

	_, noGroup := parseParts(t, (*sent)[4].msg)
	assert.Contains(t, noGroup["text/plain"], "within the next 2 weeks")
}

func TestNotifyUsesConfiguredTemplates(t *testing.T) {
	t.Parallel()

	notifier, sent := newTestNotifier(t, Templates{Default: "{{.Names}} @ {{.Day}} {{.MilitaryTime}} / {{.Icebreaker}}"})
	report := testReport()
	report.Meetings = report.Meetings[:1]
	require.NoError(t, notifier.Notify(context.Background(), report))

	_, parts := parseParts(t, (*sent)[0].msg)
	assert.Equal(t, "Ada and Bob @ October 21 1504 / Best bug?", strings.TrimSpace(parts["text/plain"]))
}

func TestNotifyLogsDeliveryFailuresAndContinues(t *testing.T) {
	t.Parallel()

	notifier, _ := newTestNotifier(t, Templates{})
	var delivered []string
	notifier.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		if to[0] == "bob@example.com" {
			return errors.New("mailbox unavailable")
		}
		delivered = append(delivered, to[0])
		return nil
	}

	require.NoError(t, notifier.Notify(context.Background(), testReport()))
	assert.Equal(t, []string{"ada@example.com", "cy@example.com", "dee@example.com", "eve@example.com"}, delivered)
}

func TestNotifyWithoutHostOnlyLogs(t *testing.T) {
	t.Parallel()

	notifier, err := NewNotifier(Options{From: "huddle@example.com", Logger: logging.Discard()})
	require.NoError(t, err)
	called := false
	notifier.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	require.NoError(t, notifier.Notify(context.Background(), testReport()))
	assert.False(t, called)
}

func TestNotifyFailsWhenPasswordMissing(t *testing.T) {
	t.Parallel()

	notifier, err := NewNotifier(Options{
		From:        "huddle@example.com",
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "apikey",
		Secrets:     staticSecrets{},
		PasswordRef: "env://HUDDLE_SMTP_PASSWORD",
		Logger:      logging.Discard(),
	})
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), testReport())
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestNewNotifierValidatesOptions(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(Options{From: "not an address"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewNotifier(Options{From: "huddle@example.com", Templates: Templates{NoTime: "{{.Names"}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewNotifier(Options{From: "huddle@example.com", PasswordRef: "env://X"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestWeeksPhrase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1 week", weeksPhrase(1))
	assert.Equal(t, "3 weeks", weeksPhrase(3))
}

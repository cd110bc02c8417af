package email

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bnema/huddle/internal/domain"
)

const (
	defaultBody = `Hi {{.Names}},

You are meeting on **{{.Day}} at {{.MilitaryTime}}**. The invite is on your calendar.

Icebreaker: _{{.Icebreaker}}_
`
	defaultNoTimeBody = `Hi {{.Names}},

We could not find a time that works for all of you this round. Please pick one yourselves within the next {{.WeeksAhead}}.

Icebreaker: _{{.Icebreaker}}_
`
	defaultNoGroupBody = `Hi,

There was nobody left to pair you with this round. You are first in line within the next {{.WeeksAhead}}.
`
)

type Templates struct {
	Default string
	NoTime  string
	NoGroup string
}

type TemplateData struct {
	Names        string
	Day          string
	MilitaryTime string
	Icebreaker   string
	WeeksAhead   string
}

type renderer struct {
	byStatus map[domain.MeetingStatus]*template.Template
	location *time.Location
}

func newRenderer(templates Templates, location *time.Location) (*renderer, error) {
	if location == nil {
		location = time.UTC
	}

	sources := map[domain.MeetingStatus]string{
		domain.MeetingScheduled: orDefault(templates.Default, defaultBody),
		domain.MeetingNoTime:    orDefault(templates.NoTime, defaultNoTimeBody),
		domain.MeetingNoGroup:   orDefault(templates.NoGroup, defaultNoGroupBody),
	}

	r := &renderer{byStatus: make(map[domain.MeetingStatus]*template.Template, len(sources)), location: location}
	for status, source := range sources {
		tmpl, err := template.New(string(status)).Option("missingkey=error").Parse(source)
		if err != nil {
			return nil, fmt.Errorf("%w: email template %s: %v", domain.ErrInvalidConfig, status, err)
		}
		r.byStatus[status] = tmpl
	}

	return r, nil
}

func (r *renderer) render(meeting domain.Meeting, report domain.RunReport) (string, error) {
	tmpl, ok := r.byStatus[meeting.Status]
	if !ok {
		return "", fmt.Errorf("no email template for status %q", meeting.Status)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.data(meeting, report)); err != nil {
		return "", fmt.Errorf("render %s email: %w", meeting.Status, err)
	}
	return buf.String(), nil
}

func (r *renderer) data(meeting domain.Meeting, report domain.RunReport) TemplateData {
	names := make([]string, 0, len(meeting.Attendees))
	for _, person := range meeting.Attendees {
		names = append(names, person.DisplayName())
	}

	data := TemplateData{
		Names:      strings.Join(names, " and "),
		Icebreaker: report.Icebreaker,
		WeeksAhead: weeksPhrase(report.WeeksAhead + 1),
	}
	if meeting.Slot != nil {
		local := meeting.Slot.Start.In(r.location)
		data.Day = local.Format("January 2")
		data.MilitaryTime = local.Format("1504")
	}
	return data
}

func weeksPhrase(n int) string {
	if n == 1 {
		return "1 week"
	}
	return fmt.Sprintf("%d weeks", n)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

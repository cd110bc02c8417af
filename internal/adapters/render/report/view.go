package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/huddle/internal/application"
	"github.com/bnema/huddle/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const slotLayout = "Mon 02 Jan 15:04 MST"

type RenderOptions struct {
	Location *time.Location
}

func (o RenderOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func renderRun(report domain.RunReport, opts RenderOptions, s styles) string {
	title := "Huddle Run"
	if report.DryRun {
		title += " (dry run)"
	}

	lines := []string{
		s.title.Render(title),
		s.header.Render(fmt.Sprintf("run: %s", report.RunID)),
		s.header.Render(fmt.Sprintf(
			"groups: %d  scheduled: %d  no time: %d  no group: %d",
			len(report.Meetings),
			report.Count(domain.MeetingScheduled),
			report.Count(domain.MeetingNoTime),
			report.Count(domain.MeetingNoGroup),
		)),
		s.header.Render(fmt.Sprintf("shuffles: %d  evictions: %d", report.Attempts, report.Evictions)),
	}
	if !report.WeekOf.IsZero() {
		lines = append(lines, s.header.Render("week of: "+report.WeekOf.In(opts.location()).Format("Mon 02 Jan")))
	}
	if report.Icebreaker != "" {
		lines = append(lines, s.detail.Render("icebreaker: "+report.Icebreaker))
	}

	if len(report.Meetings) == 0 {
		lines = append(lines, s.empty.Render("No groups formed."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	meetings := make([]string, 0, len(report.Meetings))
	for _, meeting := range report.Meetings {
		meetings = append(meetings, renderMeeting(meeting, opts, s))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, meetings...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderMeeting(meeting domain.Meeting, opts RenderOptions, s styles) string {
	names := make([]string, 0, len(meeting.Attendees))
	for _, person := range meeting.Attendees {
		names = append(names, person.DisplayName())
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		statusBadge(meeting.Status, s),
		" ",
		s.names.Render(strings.Join(names, ", ")),
		" ",
		s.detail.Render(meetingWhen(meeting, opts)),
	)
}

func statusBadge(status domain.MeetingStatus, s styles) string {
	label := fmt.Sprintf("%-9s", status)
	switch status {
	case domain.MeetingScheduled:
		return s.scheduled.Render(label)
	case domain.MeetingNoTime:
		return s.noTime.Render(label)
	default:
		return s.noGroup.Render(label)
	}
}

func meetingWhen(meeting domain.Meeting, opts RenderOptions) string {
	switch {
	case meeting.Slot != nil:
		return "@ " + meeting.Slot.Start.In(opts.location()).Format(slotLayout)
	case meeting.Status == domain.MeetingNoTime:
		return "(no common free slot)"
	default:
		return "(not enough people left)"
	}
}

func renderSlots(slots []domain.TimeSlot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Candidate Slots"),
		s.header.Render(fmt.Sprintf("slots: %d", len(slots))),
	}
	if len(slots) == 0 {
		lines = append(lines, s.empty.Render("No slots configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, slot := range slots {
		lines = append(lines, s.detail.Render(fmt.Sprintf(
			"%s - %s",
			slot.Start.In(opts.location()).Format(slotLayout),
			slot.End().In(opts.location()).Format("15:04"),
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderHistory(summary application.HistorySummary, s styles) string {
	lines := []string{
		s.title.Render("Pairing History"),
		s.header.Render(fmt.Sprintf("records: %d  pairs: %d", len(summary.Records), len(summary.Pairs))),
	}
	if len(summary.Records) == 0 {
		lines = append(lines, s.empty.Render("No groups recorded yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	records := make([]string, 0, len(summary.Records))
	for i, group := range summary.Records {
		records = append(records, s.detail.Render(fmt.Sprintf("%3d. %s", i+1, domain.FormatHistoryEntry(group))))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, records...)))

	pairs := make([]string, 0, len(summary.Pairs))
	for _, pc := range summary.Pairs {
		pairs = append(pairs, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.count.Render(fmt.Sprintf("%3dx", pc.Count)),
			" ",
			s.names.Render(pc.Pair.String()),
		))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, pairs...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

package report

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	names     lipgloss.Style
	detail    lipgloss.Style
	scheduled lipgloss.Style
	noTime    lipgloss.Style
	noGroup   lipgloss.Style
	count     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		names:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		scheduled: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		noTime:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		noGroup:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		count:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

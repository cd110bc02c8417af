package report

import (
	"errors"
	"io"

	"github.com/bnema/huddle/internal/application"
	"github.com/bnema/huddle/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	view   func(styles) string
	styles styles
	output string
}

func newModel(view func(styles) string) model {
	return model{
		view:   view,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(report domain.RunReport, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderRun(report, opts, s)
	})
}

func RenderSlots(slots []domain.TimeSlot, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderSlots(slots, opts, s)
	})
}

func RenderHistory(summary application.HistorySummary) (string, error) {
	return run(func(s styles) string {
		return renderHistory(summary, s)
	})
}

func run(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

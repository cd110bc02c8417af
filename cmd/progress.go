package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/huddle/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const startingLabel = "Starting run..."

type runPhaseMsg struct {
	phase application.RunPhase
}

type runFinishedMsg struct {
	err error
}

type runProgressModel struct {
	spinner  spinner.Model
	doneMark lipgloss.Style
	current  application.RunPhase
	done     []application.RunPhase
	start    tea.Cmd
	err      error
	finished bool
}

func newRunProgressModel(start tea.Cmd) runProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return runProgressModel{
		spinner:  s,
		doneMark: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		current:  startingLabel,
		start:    start,
	}
}

func (m runProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start)
}

func (m runProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case runPhaseMsg:
		if m.current != startingLabel {
			m.done = append(m.done, m.current)
		}
		m.current = msg.phase
		return m, nil
	case runFinishedMsg:
		m.finished = true
		m.err = msg.err
		if msg.err == nil && m.current != startingLabel {
			m.done = append(m.done, m.current)
		}
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m runProgressModel) View() string {
	var b strings.Builder
	for _, phase := range m.done {
		fmt.Fprintf(&b, "%s %s\n", m.doneMark.Render("✓"), strings.TrimSuffix(string(phase), "..."))
	}
	if !m.finished {
		fmt.Fprintf(&b, "%s %s", m.spinner.View(), m.current)
	}

	return b.String()
}

// runWithProgress draws the run's phases on a terminal. Anywhere else work
// runs directly without a progress callback.
func runWithProgress(ctx context.Context, output io.Writer, work func(context.Context, func(application.RunPhase)) error) error {
	if !isTerminal(output) {
		return work(ctx, nil)
	}

	var p *tea.Program
	start := func() tea.Msg {
		return runFinishedMsg{err: work(ctx, func(phase application.RunPhase) {
			p.Send(runPhaseMsg{phase: phase})
		})}
	}

	p = tea.NewProgram(
		newRunProgressModel(start),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(runProgressModel)
	if !ok {
		return fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return result.err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

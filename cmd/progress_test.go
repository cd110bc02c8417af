package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bnema/huddle/internal/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProgressModelTracksPhases(t *testing.T) {
	t.Parallel()

	m := newRunProgressModel(nil)
	assert.Contains(t, m.View(), "Starting run...")

	next, _ := m.Update(runPhaseMsg{phase: application.PhaseLoadingHistory})
	next, _ = next.Update(runPhaseMsg{phase: application.PhaseFormingGroups})

	view := next.View()
	assert.Contains(t, view, "✓")
	assert.Contains(t, view, "Loading history\n")
	assert.Contains(t, view, "Creating groups...")
	assert.NotContains(t, view, "Starting run...")

	next, cmd := next.Update(runFinishedMsg{})
	require.NotNil(t, cmd)

	done, ok := next.(runProgressModel)
	require.True(t, ok)
	assert.True(t, done.finished)
	assert.Equal(t, []application.RunPhase{application.PhaseLoadingHistory, application.PhaseFormingGroups}, done.done)
	assert.NotContains(t, done.View(), "...")
}

func TestRunProgressModelKeepsFailedPhaseOpen(t *testing.T) {
	t.Parallel()

	m := newRunProgressModel(nil)
	next, _ := m.Update(runPhaseMsg{phase: application.PhaseCheckingCalendars})
	next, _ = next.Update(runFinishedMsg{err: errors.New("boom")})

	done, ok := next.(runProgressModel)
	require.True(t, ok)
	assert.EqualError(t, done.err, "boom")
	assert.Empty(t, done.done)
	assert.Empty(t, done.View())
}

func TestRunWithProgressRunsDirectlyWithoutTerminal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	calls := 0
	err := runWithProgress(context.Background(), &out, func(_ context.Context, progress func(application.RunPhase)) error {
		calls++
		assert.Nil(t, progress)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, out.String())
}

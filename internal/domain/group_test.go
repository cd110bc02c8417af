package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupPairsAreCanonical(t *testing.T) {
	t.Parallel()

	group := Group{"c@x", "a@x", "b@x"}
	assert.ElementsMatch(t, []Pair{
		{A: "a@x", B: "c@x"},
		{A: "b@x", B: "c@x"},
		{A: "a@x", B: "b@x"},
	}, group.Pairs())

	assert.Empty(t, Group{"solo@x"}.Pairs())
	assert.Equal(t, NewPair("b", "a"), NewPair("a", "b"))
}

func TestParseHistoryEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Group
		corrupt bool
	}{
		{name: "pair", raw: "a@x b@x", want: Group{"a@x", "b@x"}},
		{name: "extra whitespace", raw: "  a@x\tb@x   c@x ", want: Group{"a@x", "b@x", "c@x"}},
		{name: "single member", raw: "a@x", corrupt: true},
		{name: "blank", raw: "   ", corrupt: true},
		{name: "repeated member", raw: "a@x a@x", corrupt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHistoryEntry(tt.raw)
			if tt.corrupt {
				assert.ErrorIs(t, err, ErrHistoryCorruption)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, FormatHistoryEntry(tt.want), FormatHistoryEntry(got))
		})
	}
}

func TestRosterValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Roster{{ID: "a@x", Name: "A"}, {ID: "b@x"}}.Validate())

	tests := []struct {
		name    string
		roster  Roster
		wantErr string
	}{
		{name: "empty", roster: nil, wantErr: "roster is empty"},
		{name: "missing email", roster: Roster{{Name: "Nobody"}}, wantErr: "has no email"},
		{name: "duplicate", roster: Roster{{ID: "a@x"}, {ID: "a@x"}}, wantErr: "duplicate roster email"},
		{name: "whitespace", roster: Roster{{ID: "a @x"}}, wantErr: "contains whitespace"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.roster.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestPartitionExhaustedErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	var err error = &PartitionExhaustedError{Attempts: 30, Evictions: 2}
	assert.True(t, errors.Is(err, ErrPartitionExhausted))
	assert.Contains(t, err.Error(), "30 shuffle attempts and 2 evictions")
}

func TestAvailabilityMapCandidates(t *testing.T) {
	t.Parallel()

	first := TimeSlot{Start: mustTime(t, "2026-10-21T10:00:00Z")}
	second := TimeSlot{Start: mustTime(t, "2026-10-21T14:00:00Z")}
	m := AvailabilityMap{
		{Slot: first, Free: map[PersonID]struct{}{"a": {}, "b": {}, "c": {}}},
		{Slot: second, Free: map[PersonID]struct{}{"a": {}, "c": {}}},
	}

	assert.Equal(t, []TimeSlot{first, second}, m.Candidates(Group{"a", "c"}))
	assert.Equal(t, []TimeSlot{first}, m.Candidates(Group{"a", "b"}))
	assert.Empty(t, m.Candidates(Group{"a", "d"}))
	assert.Equal(t, []PersonID{"a", "b", "c"}, m[0].FreeIDs())
}

func mustTime(t *testing.T, raw string) time.Time {
	t.Helper()

	parsed, err := time.Parse(time.RFC3339, raw)
	require.NoError(t, err)
	return parsed
}

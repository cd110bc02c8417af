package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/bnema/huddle/internal/domain"
)

type inMemoryHistoryLog struct {
	entries []domain.HistoryEntry
	nextID  int64
	removed []domain.HistoryEntry
	err     error
}

func newHistoryLog(lines ...string) *inMemoryHistoryLog {
	log := &inMemoryHistoryLog{}
	for _, line := range lines {
		log.nextID++
		log.entries = append(log.entries, domain.HistoryEntry{ID: log.nextID, Raw: line})
	}
	return log
}

func (l *inMemoryHistoryLog) Entries(context.Context) ([]domain.HistoryEntry, error) {
	if l.err != nil {
		return nil, l.err
	}
	return append([]domain.HistoryEntry(nil), l.entries...), nil
}

func (l *inMemoryHistoryLog) Append(_ context.Context, raw string) error {
	if l.err != nil {
		return l.err
	}
	l.nextID++
	l.entries = append(l.entries, domain.HistoryEntry{ID: l.nextID, Raw: raw})
	return nil
}

func (l *inMemoryHistoryLog) Remove(_ context.Context, entry domain.HistoryEntry) error {
	if l.err != nil {
		return l.err
	}
	for i, stored := range l.entries {
		if (entry.ID != 0 && stored.ID == entry.ID) || (entry.ID == 0 && stored.Raw == entry.Raw) {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			l.removed = append(l.removed, stored)
			return nil
		}
	}
	return errors.New("entry not found")
}

func (l *inMemoryHistoryLog) lines() []string {
	lines := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		lines = append(lines, entry.Raw)
	}
	return lines
}

type busyQuery struct {
	ids    []domain.PersonID
	window domain.Interval
}

type fakeBusyProvider struct {
	busy    map[domain.PersonID][]domain.Interval
	failFor map[domain.PersonID]bool
	queries []busyQuery
}

func (p *fakeBusyProvider) Query(_ context.Context, ids []domain.PersonID, window domain.Interval) (map[domain.PersonID][]domain.Interval, error) {
	p.queries = append(p.queries, busyQuery{ids: append([]domain.PersonID(nil), ids...), window: window})

	result := make(map[domain.PersonID][]domain.Interval, len(ids))
	for _, id := range ids {
		if p.failFor[id] {
			return nil, domain.ErrProvider
		}
		if intervals, ok := p.busy[id]; ok {
			result[id] = intervals
		}
	}
	return result, nil
}

type recordingScheduler struct {
	events []domain.EventRequest
	err    error
}

func (s *recordingScheduler) Create(_ context.Context, event domain.EventRequest) error {
	s.events = append(s.events, event)
	return s.err
}

type recordingSubscriber struct {
	subscribed []domain.PersonID
}

func (s *recordingSubscriber) Subscribe(_ context.Context, id domain.PersonID) error {
	s.subscribed = append(s.subscribed, id)
	return nil
}

type recordingNotifier struct {
	reports []domain.RunReport
}

func (n *recordingNotifier) Notify(_ context.Context, report domain.RunReport) error {
	n.reports = append(n.reports, report)
	return nil
}

type staticRoster struct {
	roster domain.Roster
	calls  int
}

func (r *staticRoster) List(context.Context) (domain.Roster, error) {
	r.calls++
	return r.roster, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func ids(raw ...string) []domain.PersonID {
	out := make([]domain.PersonID, 0, len(raw))
	for _, id := range raw {
		out = append(out, domain.PersonID(id))
	}
	return out
}

func sortedMembers(groups []domain.Group) []domain.PersonID {
	var members []domain.PersonID
	for _, group := range groups {
		members = append(members, group...)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

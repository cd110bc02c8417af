package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
)

type PairingHistory struct {
	log    ports.HistoryLog
	logger *slog.Logger
	dryRun bool

	records []historyRecord
	counts  map[domain.Pair]int
	known   map[domain.PersonID]struct{}
}

type historyRecord struct {
	entry domain.HistoryEntry
	group domain.Group
}

func NewPairingHistory(log ports.HistoryLog, logger *slog.Logger, dryRun bool) *PairingHistory {
	if logger == nil {
		logger = slog.Default()
	}

	return &PairingHistory{
		log:    log,
		logger: logger,
		dryRun: dryRun,
		counts: map[domain.Pair]int{},
		known:  map[domain.PersonID]struct{}{},
	}
}

func (h *PairingHistory) Load(ctx context.Context) error {
	entries, err := h.log.Entries(ctx)
	if err != nil {
		return fmt.Errorf("read history log: %w", err)
	}

	h.records = h.records[:0]
	h.counts = make(map[domain.Pair]int)
	h.known = make(map[domain.PersonID]struct{})

	for _, entry := range entries {
		group, err := domain.ParseHistoryEntry(entry.Raw)
		if err != nil {
			h.logger.Warn("skipping history entry", "entry", entry.ID, "error", err)
			continue
		}

		h.records = append(h.records, historyRecord{entry: entry, group: group})
		for _, pair := range group.Pairs() {
			h.counts[pair]++
		}
		for _, member := range group {
			h.known[member] = struct{}{}
		}
	}

	h.logger.Debug("history loaded", "records", len(h.records), "pairs", len(h.counts))
	return nil
}

func (h *PairingHistory) UseCount(pair domain.Pair) int {
	return h.counts[pair]
}

func (h *PairingHistory) Len() int {
	return len(h.records)
}

func (h *PairingHistory) Records() []domain.Group {
	groups := make([]domain.Group, 0, len(h.records))
	for _, record := range h.records {
		groups = append(groups, append(domain.Group(nil), record.group...))
	}
	return groups
}

func (h *PairingHistory) KnownMember(id domain.PersonID) bool {
	_, ok := h.known[id]
	return ok
}

func (h *PairingHistory) Admits(group domain.Group) bool {
	for _, pair := range group.Pairs() {
		if h.counts[pair] > 0 {
			return false
		}
	}
	return true
}

func (h *PairingHistory) Spend(group domain.Group) {
	for _, pair := range group.Pairs() {
		if h.counts[pair] > 0 {
			h.counts[pair]--
		}
	}
}

func (h *PairingHistory) Record(ctx context.Context, group domain.Group) error {
	if h.dryRun {
		h.logger.Debug("dry run, history not recorded", "group", domain.FormatHistoryEntry(group))
		return nil
	}

	raw := domain.FormatHistoryEntry(group)
	if err := h.log.Append(ctx, raw); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}

	h.records = append(h.records, historyRecord{entry: domain.HistoryEntry{Raw: raw}, group: append(domain.Group(nil), group...)})
	for _, pair := range group.Pairs() {
		h.counts[pair]++
	}
	for _, member := range group {
		h.known[member] = struct{}{}
	}

	return nil
}

func (h *PairingHistory) PruneOldest(ctx context.Context) (domain.Group, error) {
	if len(h.records) == 0 {
		return nil, domain.ErrHistoryEmpty
	}

	oldest := h.records[0]
	if !h.dryRun {
		if err := h.log.Remove(ctx, oldest.entry); err != nil {
			return nil, fmt.Errorf("remove oldest history entry: %w", err)
		}
	}

	h.records = h.records[1:]
	for _, pair := range oldest.group.Pairs() {
		if h.counts[pair] > 0 {
			h.counts[pair]--
		}
	}

	h.logger.Info("evicted oldest history record", "group", domain.FormatHistoryEntry(oldest.group), "remaining", len(h.records))
	return oldest.group, nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
)

type HistoryService struct {
	log    ports.HistoryLog
	logger *slog.Logger
}

func NewHistoryService(log ports.HistoryLog, logger *slog.Logger) *HistoryService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HistoryService{log: log, logger: logger}
}

func (s *HistoryService) Summary(ctx context.Context) (HistorySummary, error) {
	history, err := s.load(ctx)
	if err != nil {
		return HistorySummary{}, err
	}

	records := history.Records()
	seen := make(map[domain.Pair]struct{})
	pairs := make([]PairCount, 0)
	for _, group := range records {
		for _, pair := range group.Pairs() {
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}
			pairs = append(pairs, PairCount{Pair: pair, Count: history.UseCount(pair)})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count == pairs[j].Count {
			return pairs[i].Pair.String() < pairs[j].Pair.String()
		}
		return pairs[i].Count > pairs[j].Count
	})

	return HistorySummary{Records: records, Pairs: pairs}, nil
}

func (s *HistoryService) PruneOldest(ctx context.Context) (domain.Group, error) {
	history, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return history.PruneOldest(ctx)
}

func (s *HistoryService) load(ctx context.Context) (*PairingHistory, error) {
	history := NewPairingHistory(s.log, s.logger, false)
	if err := history.Load(ctx); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

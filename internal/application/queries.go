package application

import "github.com/bnema/huddle/internal/domain"

type PairCount struct {
	Pair  domain.Pair
	Count int
}

type HistorySummary struct {
	Records []domain.Group
	Pairs   []PairCount
}

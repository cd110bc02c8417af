package domain

import (
	"fmt"
	"strings"
)

type Pair struct {
	A PersonID
	B PersonID
}

func NewPair(x, y PersonID) Pair {
	if y < x {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

func (p Pair) String() string {
	return string(p.A) + "," + string(p.B)
}

type Group []PersonID

func (g Group) Pairs() []Pair {
	if len(g) < 2 {
		return nil
	}

	pairs := make([]Pair, 0, len(g)*(len(g)-1)/2)
	for i := 0; i < len(g); i++ {
		for j := i + 1; j < len(g); j++ {
			pairs = append(pairs, NewPair(g[i], g[j]))
		}
	}
	return pairs
}

func (g Group) Contains(id PersonID) bool {
	for _, member := range g {
		if member == id {
			return true
		}
	}
	return false
}

const historySeparator = " "

type HistoryEntry struct {
	ID  int64
	Raw string
}

func FormatHistoryEntry(group Group) string {
	parts := make([]string, 0, len(group))
	for _, member := range group {
		parts = append(parts, string(member))
	}
	return strings.Join(parts, historySeparator)
}

func ParseHistoryEntry(raw string) (Group, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: %q has fewer than two members", ErrHistoryCorruption, raw)
	}

	group := make(Group, 0, len(fields))
	seen := make(map[PersonID]struct{}, len(fields))
	for _, field := range fields {
		id := PersonID(field)
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %q repeats %s", ErrHistoryCorruption, raw, id)
		}
		seen[id] = struct{}{}
		group = append(group, id)
	}

	return group, nil
}

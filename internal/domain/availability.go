package domain

import "sort"

const MinFreePerSlot = 2

type SlotAvailability struct {
	Slot TimeSlot
	Free map[PersonID]struct{}
}

func (s SlotAvailability) Covers(group Group) bool {
	for _, member := range group {
		if _, ok := s.Free[member]; !ok {
			return false
		}
	}
	return true
}

func (s SlotAvailability) FreeIDs() []PersonID {
	ids := make([]PersonID, 0, len(s.Free))
	for id := range s.Free {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type AvailabilityMap []SlotAvailability

func (m AvailabilityMap) Candidates(group Group) []TimeSlot {
	var slots []TimeSlot
	for _, entry := range m {
		if entry.Covers(group) {
			slots = append(slots, entry.Slot)
		}
	}
	return slots
}

func (m AvailabilityMap) Slots() []TimeSlot {
	slots := make([]TimeSlot, 0, len(m))
	for _, entry := range m {
		slots = append(slots, entry.Slot)
	}
	return slots
}

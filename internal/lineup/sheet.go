package lineup

import (
	"fmt"
	"sort"
	"sync"
)

// Sheet is the fixed set of numbered positions for one match. Slots are
// numbered 1..size; odd numbers belong to Team A and even numbers to
// Team B. With an odd size Team A absorbs the extra slot. The sheet is
// mutated only through Lock and Unlock.
type Sheet struct {
	mu      sync.Mutex
	matchID string
	size    int
	locks   map[int]string // slot number -> player ID
}

// NewSheet creates a sheet with the given number of slots. Size must be at
// least 2; an even size gives two equal sides.
func NewSheet(matchID string, size int) (*Sheet, error) {
	if size < 2 {
		return nil, fmt.Errorf("sheet size must be at least 2, got %d", size)
	}
	return &Sheet{
		matchID: matchID,
		size:    size,
		locks:   make(map[int]string),
	}, nil
}

// MatchID returns the match this sheet belongs to.
func (s *Sheet) MatchID() string { return s.matchID }

// Size returns the total number of slots.
func (s *Sheet) Size() int { return s.size }

// Lock pins a player to a slot. It fails with a ConflictError if the player
// already holds a lock on another slot of this sheet. Re-locking the same
// slot replaces the existing pin; locking a player to their current slot is
// a no-op.
func (s *Sheet) Lock(slot int, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot < 1 || slot > s.size {
		return &ConflictError{
			MatchID: s.matchID,
			Slot:    slot,
			Reason:  fmt.Sprintf("slot %d out of range 1..%d", slot, s.size),
		}
	}
	for num, id := range s.locks {
		if id == playerID && num != slot {
			return &ConflictError{
				MatchID:  s.matchID,
				Slot:     slot,
				PlayerID: playerID,
				Reason:   fmt.Sprintf("player %s already locked to slot %d", playerID, num),
			}
		}
	}
	s.locks[slot] = playerID
	return nil
}

// Unlock releases a slot's pin. Unlocking an open slot is a no-op.
func (s *Sheet) Unlock(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, slot)
}

// OpenSlots returns the ordered slot numbers without a lock.
func (s *Sheet) OpenSlots() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var open []int
	for slot := 1; slot <= s.size; slot++ {
		if _, locked := s.locks[slot]; !locked {
			open = append(open, slot)
		}
	}
	return open
}

// Locks returns a copy of the current slot pins, keyed by slot number.
func (s *Sheet) Locks() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	locks := make(map[int]string, len(s.locks))
	for slot, id := range s.locks {
		locks[slot] = id
	}
	return locks
}

// LockedSlots returns the ordered slot numbers that carry a pin.
func (s *Sheet) LockedSlots() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]int, 0, len(s.locks))
	for slot := range s.locks {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

package lineup

import "fmt"

// ConflictError reports lock or assignment contention: a player already
// pinned elsewhere, or a balancing result that lost the commit race. The
// caller may retry with fresh state.
type ConflictError struct {
	MatchID  string
	Slot     int
	PlayerID string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on match %s: %s", e.MatchID, e.Reason)
}

// LockConflictError means the locks alone make the balancing request
// unsatisfiable, before any partitioning is attempted.
type LockConflictError struct {
	MatchID string
	Reason  string
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("lock conflict on match %s: %s", e.MatchID, e.Reason)
}

// InsufficientRosterError means fewer players are available than open slots.
type InsufficientRosterError struct {
	MatchID   string
	Open      int
	Available int
}

func (e *InsufficientRosterError) Error() string {
	return fmt.Sprintf("insufficient roster for match %s: %d open slots, %d players available", e.MatchID, e.Open, e.Available)
}

package lineup

import (
	"time"
)

// Side identifies one of the two teams on a sheet.
type Side string

const (
	TeamA Side = "A"
	TeamB Side = "B"
)

// SideOf returns the side a slot number belongs to. Odd numbers are Team A,
// even numbers Team B, so slot positions stay stable across re-balancing.
func SideOf(slot int) Side {
	if slot%2 == 1 {
		return TeamA
	}
	return TeamB
}

// SlotAssignment is one filled slot of a committed line-up.
type SlotAssignment struct {
	Slot       int     `json:"slot"`
	Side       Side    `json:"side"`
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Rating     float64 `json:"rating"`
	Locked     bool    `json:"locked"`
}

// Assignment is the output of one balancing run: a complete slot to player
// mapping for a match. It is immutable; re-running the balancer produces a
// fresh Assignment which supersedes this one on commit.
type Assignment struct {
	ID        string           `json:"id"`
	MatchID   string           `json:"match_id"`
	Version   int64            `json:"version"`
	Slots     []SlotAssignment `json:"slots"`
	RatingA   float64          `json:"rating_a"`
	RatingB   float64          `json:"rating_b"`
	Bench     []string         `json:"bench,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Diff is the absolute rating difference between the two sides.
func (a *Assignment) Diff() float64 {
	d := a.RatingA - a.RatingB
	if d < 0 {
		d = -d
	}
	return d
}

// SidePlayers returns the player IDs assigned to the given side, in slot order.
func (a *Assignment) SidePlayers(side Side) []string {
	var ids []string
	for _, s := range a.Slots {
		if s.Side == side {
			ids = append(ids, s.PlayerID)
		}
	}
	return ids
}

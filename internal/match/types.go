package match

import (
	"time"

	"github.com/clubhq/teamsheet/internal/lineup"
)

// PlayerEntry is one player's recorded contribution to a match.
type PlayerEntry struct {
	PlayerID string      `json:"player_id"`
	Side     lineup.Side `json:"side"`
	Goals    int         `json:"goals"`
	Assists  int         `json:"assists"`
	Cards    int         `json:"cards"`
	Minutes  int         `json:"minutes"`
}

// Result is a completed match's final score and per-player contributions.
// Team A is the home side. A Result is immutable once ingested; a
// correction requires an explicit retraction and re-ingestion.
type Result struct {
	MatchID   string        `json:"match_id"`
	PlayedAt  time.Time     `json:"played_at"`
	HomeGoals int           `json:"home_goals"`
	AwayGoals int           `json:"away_goals"`
	Entries   []PlayerEntry `json:"entries"`
}

// SideGoals sums the goals attributed to players on the given side.
func (r *Result) SideGoals(side lineup.Side) int {
	total := 0
	for _, e := range r.Entries {
		if e.Side == side {
			total += e.Goals
		}
	}
	return total
}

// TeamGoals returns the recorded team score for a side.
func (r *Result) TeamGoals(side lineup.Side) int {
	if side == lineup.TeamA {
		return r.HomeGoals
	}
	return r.AwayGoals
}

package query

import (
	"time"

	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/stats"
)

// Facade exposes read-only projections over the aggregator's committed
// state. Every call is safe to repeat.
type Facade struct {
	stats   Stats
	players player.Store
}

// RaceDay is one match-day of a season race chart: the cumulative points
// of every player after that day's match.
type RaceDay struct {
	MatchID    string         `json:"match_id"`
	PlayedAt   time.Time      `json:"played_at"`
	Cumulative map[string]int `json:"cumulative"`
}

// PlayerReport pairs a player's registry entry with their all-time totals.
type PlayerReport struct {
	Player player.Info        `json:"player"`
	Totals stats.PlayerTotals `json:"totals"`
}

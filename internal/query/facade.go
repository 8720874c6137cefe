package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/stats"
)

// New creates a read facade over the given aggregator state and player
// registry.
func New(s Stats, players player.Store) *Facade {
	return &Facade{stats: s, players: players}
}

// LeagueTable returns a season's table sorted by points, then goal
// difference, then goals, with a deterministic tie order.
func (f *Facade) LeagueTable(seasonID string) ([]stats.PlayerTotals, error) {
	rows, err := f.stats.SeasonTable(seasonID)
	if err != nil {
		return nil, err
	}
	stats.SortTable(rows)
	return rows, nil
}

// AllTimeLeaderboard returns the merged totals over every season, in
// league-table order.
func (f *Facade) AllTimeLeaderboard() []stats.PlayerTotals {
	rows := f.stats.AllTimeTotals()
	stats.SortTable(rows)
	return rows
}

// Race returns a season's cumulative points per match-day per player, the
// shape the race-to-date chart consumes.
func (f *Facade) Race(seasonID string) ([]RaceDay, error) {
	race, err := f.stats.RaceLog(seasonID)
	if err != nil {
		return nil, err
	}

	running := make(map[string]int)
	days := make([]RaceDay, len(race))
	for i, rp := range race {
		for id, pts := range rp.Points {
			running[id] += pts
		}
		cumulative := make(map[string]int, len(running))
		for id, pts := range running {
			cumulative[id] = pts
		}
		days[i] = RaceDay{MatchID: rp.MatchID, PlayedAt: rp.PlayedAt, Cumulative: cumulative}
	}
	return days, nil
}

// Legends returns the current personal-best records with the history of
// the records they superseded.
func (f *Facade) Legends() []stats.PersonalBestRecord {
	return f.stats.PersonalBests()
}

// PlayerByName finds a player by fuzzy, case-insensitive name match and
// returns their registry entry with all-time totals.
func (f *Facade) PlayerByName(q string) (*PlayerReport, error) {
	all, err := f.players.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(strings.TrimSpace(q), names)
	if len(ranks) == 0 {
		return nil, fmt.Errorf("no player matches %q", q)
	}
	sort.Sort(ranks)
	best := all[ranks[0].OriginalIndex]

	report := &PlayerReport{Player: best}
	for _, row := range f.stats.AllTimeTotals() {
		if row.PlayerID == best.ID {
			report.Totals = row
			break
		}
	}
	report.Totals.PlayerID = best.ID
	report.Totals.PlayerName = best.Name
	return report, nil
}

var _ Stats = (*stats.Aggregator)(nil)

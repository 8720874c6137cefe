package query_test

import (
	"testing"
	"time"

	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/query"
	"github.com/clubhq/teamsheet/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	seasons []stats.Season
	tables  map[string][]stats.PlayerTotals
	race    map[string][]stats.RacePoint
	bests   []stats.PersonalBestRecord
}

func (s *stubStats) Seasons() []stats.Season { return s.seasons }

func (s *stubStats) SeasonTable(seasonID string) ([]stats.PlayerTotals, error) {
	return s.tables[seasonID], nil
}

func (s *stubStats) AllTimeTotals() []stats.PlayerTotals {
	var all []stats.PlayerTotals
	for _, rows := range s.tables {
		all = append(all, rows...)
	}
	return all
}

func (s *stubStats) RaceLog(seasonID string) ([]stats.RacePoint, error) {
	return s.race[seasonID], nil
}

func (s *stubStats) PersonalBests() []stats.PersonalBestRecord { return s.bests }

func TestLeagueTable(t *testing.T) {
	f := query.New(&stubStats{tables: map[string][]stats.PlayerTotals{
		"s1": {
			{PlayerID: "p2", PlayerName: "Bob", Points: 4, Goals: 1},
			{PlayerID: "p1", PlayerName: "Alice", Points: 7, Goals: 3},
		},
	}}, player.NewMock())

	rows, err := f.LeagueTable("s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p1", rows[0].PlayerID)
	assert.Equal(t, "p2", rows[1].PlayerID)
}

func TestRaceAccumulates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 19, 0, 0, 0, time.UTC) }
	f := query.New(&stubStats{race: map[string][]stats.RacePoint{
		"s1": {
			{MatchID: "m1", PlayedAt: day(1), Points: map[string]int{"p1": 3, "p2": 0}},
			{MatchID: "m2", PlayedAt: day(8), Points: map[string]int{"p1": 1, "p2": 1}},
			{MatchID: "m3", PlayedAt: day(15), Points: map[string]int{"p2": 3}},
		},
	}}, player.NewMock())

	days, err := f.Race("s1")
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, map[string]int{"p1": 3, "p2": 0}, days[0].Cumulative)
	assert.Equal(t, map[string]int{"p1": 4, "p2": 1}, days[1].Cumulative)
	assert.Equal(t, map[string]int{"p1": 4, "p2": 4}, days[2].Cumulative)

	// Each day carries its own snapshot, not a shared map.
	days[0].Cumulative["p1"] = 99
	assert.Equal(t, 4, days[1].Cumulative["p1"])
}

func TestLegends(t *testing.T) {
	recs := []stats.PersonalBestRecord{
		{Metric: stats.MetricGoals, Value: 4, PlayerID: "p1", PreviousValue: 3},
	}
	f := query.New(&stubStats{bests: recs}, player.NewMock())
	assert.Equal(t, recs, f.Legends())
}

func TestPlayerByName(t *testing.T) {
	players := player.NewMock()
	players.AllFunc = func() ([]player.Info, error) {
		return []player.Info{
			{ID: "p1", Name: "Alice Johnson", Rating: 7},
			{ID: "p2", Name: "Bob Smith", Rating: 5},
			{ID: "p3", Name: "Alicia Keys", Rating: 6},
		}, nil
	}
	f := query.New(&stubStats{tables: map[string][]stats.PlayerTotals{
		"s1": {{PlayerID: "p2", PlayerName: "Bob Smith", Played: 3, Goals: 2}},
	}}, players)

	t.Run("exact name", func(t *testing.T) {
		report, err := f.PlayerByName("Bob Smith")
		require.NoError(t, err)
		assert.Equal(t, "p2", report.Player.ID)
		assert.Equal(t, 3, report.Totals.Played)
	})

	t.Run("partial, case-insensitive match", func(t *testing.T) {
		report, err := f.PlayerByName("bob")
		require.NoError(t, err)
		assert.Equal(t, "p2", report.Player.ID)
	})

	t.Run("player without totals gets an empty line", func(t *testing.T) {
		report, err := f.PlayerByName("Alice Johnson")
		require.NoError(t, err)
		assert.Equal(t, "p1", report.Player.ID)
		assert.Equal(t, 0, report.Totals.Played)
		assert.Equal(t, "Alice Johnson", report.Totals.PlayerName)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := f.PlayerByName("zzz")
		assert.Error(t, err)
	})
}

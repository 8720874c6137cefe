package query

import "github.com/clubhq/teamsheet/internal/stats"

// Stats defines the aggregator state the facade projects from.
type Stats interface {
	Seasons() []stats.Season
	SeasonTable(seasonID string) ([]stats.PlayerTotals, error)
	AllTimeTotals() []stats.PlayerTotals
	RaceLog(seasonID string) ([]stats.RacePoint, error)
	PersonalBests() []stats.PersonalBestRecord
}

package notifier

import (
	"github.com/clubhq/teamsheet/internal/stats"
)

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// A personal best record was superseded.
	PersonalBestBroken(rec *stats.PersonalBestRecord) error
	// A season passed its end date and was closed; table is the final standing.
	SeasonClosed(season stats.Season, table []stats.PlayerTotals) error
}

package stats

import "github.com/clubhq/teamsheet/internal/match"

// Sink receives committed aggregate deltas for persistence. Failures are
// reported but never roll back the in-memory state, which stays
// authoritative for the running process.
type Sink interface {
	CommitAggregateDelta(d *Delta) error
}

// History supplies the full ordered match history of a season, for
// rebuilding an aggregate from scratch.
type History interface {
	ResultsForSeason(seasonID string) ([]match.Result, error)
}

// Notifier receives business events from the aggregator, fire-and-forget.
type Notifier interface {
	PersonalBestBroken(rec *PersonalBestRecord) error
	SeasonClosed(season Season, table []PlayerTotals) error
}

// Publisher fans committed deltas out to interested consumers.
type Publisher interface {
	SendMessage(topic string, data any) error
}

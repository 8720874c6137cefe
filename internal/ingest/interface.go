package ingest

import (
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/stats"
)

// Aggregator defines the statistics operations required by the ingestor.
type Aggregator interface {
	Apply(res *match.Result, opts stats.ApplyOptions) (*stats.Delta, error)
	Rebuild(seasonID string) error
}

// Sink receives accepted match results for persistence. Commit failures
// are reported but non-fatal; removal failures abort a retraction because
// the history store feeds rebuilds.
type Sink interface {
	CommitMatchResult(res *match.Result, seasonID string) error
	RemoveMatchResult(matchID string) error
}

package ingest

import (
	"sync"

	"github.com/clubhq/teamsheet/internal/metrics"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/stats"
)

// Receipt confirms a processed ingestion. Re-ingesting the same match ID
// returns the original receipt with AlreadyIngested set.
type Receipt struct {
	MatchID         string       `json:"match_id"`
	SeasonID        string       `json:"season_id"`
	Warnings        []string     `json:"warnings,omitempty"`
	AlreadyIngested bool         `json:"already_ingested"`
	Delta           *stats.Delta `json:"delta,omitempty"`
}

// Options tunes a single ingestion.
type Options struct {
	// Backfill force-appends a result into a closed season.
	Backfill bool
}

// Ingestor validates and records completed match results, all-or-nothing.
type Ingestor struct {
	mu      sync.Mutex
	ledger  map[string]*Receipt
	players player.Store
	agg     Aggregator
	sink    Sink
	metrics metrics.Metrics
}

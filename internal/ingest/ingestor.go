package ingest

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clubhq/teamsheet/internal/lineup"
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/metrics"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/stats"
)

// New creates an Ingestor. Sink and metrics may be nil.
func New(players player.Store, agg Aggregator, sink Sink, m metrics.Metrics) *Ingestor {
	return &Ingestor{
		ledger:  make(map[string]*Receipt),
		players: players,
		agg:     agg,
		sink:    sink,
		metrics: m,
	}
}

// Ingest validates and records one completed match result. Ingestion is
// idempotent by match ID and all-or-nothing: on any validation failure
// nothing is applied anywhere.
func (in *Ingestor) Ingest(res *match.Result, opts Options) (*Receipt, error) {
	start := time.Now()

	if prior := in.lookup(res.MatchID); prior != nil {
		log.Info("Match already ingested, returning prior receipt", "matchID", res.MatchID)
		return prior, nil
	}

	warnings, err := in.validate(res)
	if err != nil {
		return nil, err
	}

	delta, err := in.agg.Apply(res, stats.ApplyOptions{Backfill: opts.Backfill})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		MatchID:  res.MatchID,
		SeasonID: delta.SeasonID,
		Warnings: warnings,
		Delta:    delta,
	}
	receipt = in.record(receipt)

	if in.sink != nil {
		if err := in.sink.CommitMatchResult(res, delta.SeasonID); err != nil {
			log.Error("Failed to persist match result", "error", err, "matchID", res.MatchID)
			if in.metrics != nil {
				in.metrics.IncSinkFailures()
			}
		}
	}
	if in.metrics != nil {
		in.metrics.IncResultsIngested()
		in.metrics.ObserveIngestDuration(time.Since(start).Seconds())
	}

	log.Info("Ingested match result", "matchID", res.MatchID, "seasonID", delta.SeasonID, "warnings", len(warnings))
	return receipt, nil
}

// Retract removes a previously ingested result so a corrected one can be
// re-ingested. The season aggregate is rebuilt from the remaining history.
func (in *Ingestor) Retract(matchID string) error {
	in.mu.Lock()
	receipt, ok := in.ledger[matchID]
	if !ok {
		in.mu.Unlock()
		return &match.ValidationError{Rule: "match", Detail: fmt.Sprintf("match %s has not been ingested", matchID)}
	}
	delete(in.ledger, matchID)
	in.mu.Unlock()

	if in.sink != nil {
		if err := in.sink.RemoveMatchResult(matchID); err != nil {
			// Put the receipt back: the history store still holds the
			// result, so the ledger must too.
			in.mu.Lock()
			in.ledger[matchID] = receipt
			in.mu.Unlock()
			return fmt.Errorf("failed to remove match result: %w", err)
		}
	}

	if err := in.agg.Rebuild(receipt.SeasonID); err != nil {
		return fmt.Errorf("failed to rebuild season after retraction: %w", err)
	}

	log.Info("Retracted match result", "matchID", matchID, "seasonID", receipt.SeasonID)
	return nil
}

func (in *Ingestor) validate(res *match.Result) ([]string, error) {
	if res.MatchID == "" {
		return nil, &match.ValidationError{Rule: "match", Detail: "match ID is required"}
	}
	if res.PlayedAt.IsZero() {
		return nil, &match.ValidationError{Rule: "match", Detail: "played-at date is required"}
	}
	if res.HomeGoals < 0 || res.AwayGoals < 0 {
		return nil, &match.ValidationError{Rule: "score", Detail: "team scores must be non-negative"}
	}

	seen := make(map[string]bool, len(res.Entries))
	for _, e := range res.Entries {
		if e.PlayerID == "" {
			return nil, &match.ValidationError{Rule: "entry", Detail: "entry without player ID"}
		}
		if seen[e.PlayerID] {
			return nil, &match.ValidationError{Rule: "entry", Detail: fmt.Sprintf("player %s listed twice", e.PlayerID)}
		}
		seen[e.PlayerID] = true
		if e.Side != lineup.TeamA && e.Side != lineup.TeamB {
			return nil, &match.ValidationError{Rule: "entry", Detail: fmt.Sprintf("player %s has invalid side %q", e.PlayerID, e.Side)}
		}
		if e.Goals < 0 || e.Assists < 0 || e.Cards < 0 || e.Minutes < 0 {
			return nil, &match.ValidationError{Rule: "entry", Detail: fmt.Sprintf("player %s has negative counters", e.PlayerID)}
		}
		if !in.players.IsKnown(e.PlayerID) {
			return nil, &match.ValidationError{Rule: "player", Detail: fmt.Sprintf("unknown player %s", e.PlayerID)}
		}
	}

	// Attribution data may be partial, so over-attribution is a warning,
	// not a failure.
	var warnings []string
	for _, side := range []lineup.Side{lineup.TeamA, lineup.TeamB} {
		attributed := res.SideGoals(side)
		recorded := res.TeamGoals(side)
		if attributed > recorded {
			w := fmt.Sprintf("side %s has %d attributed goals but a team score of %d", side, attributed, recorded)
			warnings = append(warnings, w)
			log.Warn("Goal attribution exceeds team score", "matchID", res.MatchID, "side", side, "attributed", attributed, "recorded", recorded)
		}
	}
	return warnings, nil
}

func (in *Ingestor) lookup(matchID string) *Receipt {
	in.mu.Lock()
	defer in.mu.Unlock()
	if r, ok := in.ledger[matchID]; ok {
		prior := *r
		prior.AlreadyIngested = true
		return &prior
	}
	return nil
}

// record stores the receipt, keeping the first one if a concurrent
// ingestion of the same match got there before us.
func (in *Ingestor) record(r *Receipt) *Receipt {
	in.mu.Lock()
	defer in.mu.Unlock()
	if prior, ok := in.ledger[r.MatchID]; ok {
		dup := *prior
		dup.AlreadyIngested = true
		return &dup
	}
	in.ledger[r.MatchID] = r
	return r
}

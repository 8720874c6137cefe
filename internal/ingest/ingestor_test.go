package ingest_test

import (
	"errors"
	"testing"
	"time"

	"github.com/clubhq/teamsheet/internal/ingest"
	"github.com/clubhq/teamsheet/internal/lineup"
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyAggregator struct {
	applyErr   error
	rebuildErr error

	ApplyCalls   []string
	RebuildCalls []string
}

func (a *spyAggregator) Apply(res *match.Result, opts stats.ApplyOptions) (*stats.Delta, error) {
	a.ApplyCalls = append(a.ApplyCalls, res.MatchID)
	if a.applyErr != nil {
		return nil, a.applyErr
	}
	return &stats.Delta{SeasonID: "s1", MatchID: res.MatchID}, nil
}

func (a *spyAggregator) Rebuild(seasonID string) error {
	a.RebuildCalls = append(a.RebuildCalls, seasonID)
	return a.rebuildErr
}

type spySink struct {
	commitErr error
	removeErr error

	CommitCalls []string
	RemoveCalls []string
}

func (s *spySink) CommitMatchResult(res *match.Result, seasonID string) error {
	s.CommitCalls = append(s.CommitCalls, res.MatchID)
	return s.commitErr
}

func (s *spySink) RemoveMatchResult(matchID string) error {
	s.RemoveCalls = append(s.RemoveCalls, matchID)
	return s.removeErr
}

func knownPlayers(ids ...string) *player.MockStore {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	store := player.NewMock()
	store.IsKnownFunc = func(playerID string) bool { return known[playerID] }
	return store
}

func validResult() *match.Result {
	return &match.Result{
		MatchID:   "m1",
		PlayedAt:  time.Date(2026, 3, 5, 19, 0, 0, 0, time.UTC),
		HomeGoals: 2,
		AwayGoals: 1,
		Entries: []match.PlayerEntry{
			{PlayerID: "p1", Side: lineup.TeamA, Goals: 2, Minutes: 90},
			{PlayerID: "p2", Side: lineup.TeamB, Goals: 1, Minutes: 90},
		},
	}
}

func TestIngest(t *testing.T) {
	agg := &spyAggregator{}
	sink := &spySink{}
	in := ingest.New(knownPlayers("p1", "p2"), agg, sink, nil)

	receipt, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, "m1", receipt.MatchID)
	assert.Equal(t, "s1", receipt.SeasonID)
	assert.False(t, receipt.AlreadyIngested)
	assert.Empty(t, receipt.Warnings)
	require.NotNil(t, receipt.Delta)

	assert.Equal(t, []string{"m1"}, agg.ApplyCalls)
	assert.Equal(t, []string{"m1"}, sink.CommitCalls)
}

func TestIngestIdempotent(t *testing.T) {
	agg := &spyAggregator{}
	sink := &spySink{}
	in := ingest.New(knownPlayers("p1", "p2"), agg, sink, nil)

	_, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)

	second, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)
	assert.True(t, second.AlreadyIngested)

	// Neither the aggregate nor the store saw the duplicate.
	assert.Len(t, agg.ApplyCalls, 1)
	assert.Len(t, sink.CommitCalls, 1)
}

func TestIngestValidation(t *testing.T) {
	mutations := map[string]func(*match.Result){
		"missing match ID":  func(r *match.Result) { r.MatchID = "" },
		"missing date":      func(r *match.Result) { r.PlayedAt = time.Time{} },
		"negative score":    func(r *match.Result) { r.AwayGoals = -1 },
		"entry without ID":  func(r *match.Result) { r.Entries[0].PlayerID = "" },
		"duplicate player":  func(r *match.Result) { r.Entries[1].PlayerID = "p1" },
		"invalid side":      func(r *match.Result) { r.Entries[0].Side = "C" },
		"negative counters": func(r *match.Result) { r.Entries[0].Assists = -2 },
		"unknown player":    func(r *match.Result) { r.Entries[0].PlayerID = "ghost" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			agg := &spyAggregator{}
			in := ingest.New(knownPlayers("p1", "p2"), agg, nil, nil)

			res := validResult()
			mutate(res)

			_, err := in.Ingest(res, ingest.Options{})
			var verr *match.ValidationError
			require.ErrorAs(t, err, &verr)

			// All-or-nothing: nothing reached the aggregate.
			assert.Empty(t, agg.ApplyCalls)
		})
	}
}

func TestIngestOverAttributionWarns(t *testing.T) {
	in := ingest.New(knownPlayers("p1", "p2"), &spyAggregator{}, nil, nil)

	res := validResult()
	res.Entries[0].Goals = 4 // team score stays 2

	receipt, err := in.Ingest(res, ingest.Options{})
	require.NoError(t, err)
	require.Len(t, receipt.Warnings, 1)
	assert.Contains(t, receipt.Warnings[0], "side A")
}

func TestIngestAggregateFailure(t *testing.T) {
	agg := &spyAggregator{applyErr: &stats.SeasonClosedError{SeasonID: "s1", MatchID: "m1"}}
	sink := &spySink{}
	in := ingest.New(knownPlayers("p1", "p2"), agg, sink, nil)

	_, err := in.Ingest(validResult(), ingest.Options{})
	var closed *stats.SeasonClosedError
	require.ErrorAs(t, err, &closed)

	// The failed match is not in the ledger and was never persisted.
	assert.Empty(t, sink.CommitCalls)
	receipt, err := in.Ingest(validResult(), ingest.Options{})
	require.Error(t, err)
	assert.Nil(t, receipt)
}

func TestIngestBackfillPassesThrough(t *testing.T) {
	var gotBackfill bool
	agg := &spyAggregator{}
	in := ingest.New(knownPlayers("p1", "p2"), aggregatorFunc{
		apply: func(res *match.Result, opts stats.ApplyOptions) (*stats.Delta, error) {
			gotBackfill = opts.Backfill
			return agg.Apply(res, opts)
		},
		rebuild: agg.Rebuild,
	}, nil, nil)

	_, err := in.Ingest(validResult(), ingest.Options{Backfill: true})
	require.NoError(t, err)
	assert.True(t, gotBackfill)
}

type aggregatorFunc struct {
	apply   func(res *match.Result, opts stats.ApplyOptions) (*stats.Delta, error)
	rebuild func(seasonID string) error
}

func (f aggregatorFunc) Apply(res *match.Result, opts stats.ApplyOptions) (*stats.Delta, error) {
	return f.apply(res, opts)
}

func (f aggregatorFunc) Rebuild(seasonID string) error { return f.rebuild(seasonID) }

func TestIngestSinkFailureIsNotFatal(t *testing.T) {
	sink := &spySink{commitErr: errors.New("disk full")}
	in := ingest.New(knownPlayers("p1", "p2"), &spyAggregator{}, sink, nil)

	receipt, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, "m1", receipt.MatchID)
}

func TestRetract(t *testing.T) {
	agg := &spyAggregator{}
	sink := &spySink{}
	in := ingest.New(knownPlayers("p1", "p2"), agg, sink, nil)

	_, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)

	require.NoError(t, in.Retract("m1"))
	assert.Equal(t, []string{"m1"}, sink.RemoveCalls)
	assert.Equal(t, []string{"s1"}, agg.RebuildCalls)

	// The match can be re-ingested after retraction.
	receipt, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)
	assert.False(t, receipt.AlreadyIngested)
}

func TestRetractUnknownMatch(t *testing.T) {
	in := ingest.New(knownPlayers("p1", "p2"), &spyAggregator{}, nil, nil)

	err := in.Retract("never-seen")
	var verr *match.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRetractRemoveFailureKeepsLedger(t *testing.T) {
	agg := &spyAggregator{}
	sink := &spySink{removeErr: errors.New("locked")}
	in := ingest.New(knownPlayers("p1", "p2"), agg, sink, nil)

	_, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)

	require.Error(t, in.Retract("m1"))
	assert.Empty(t, agg.RebuildCalls)

	// The ledger still remembers the match.
	receipt, err := in.Ingest(validResult(), ingest.Options{})
	require.NoError(t, err)
	assert.True(t, receipt.AlreadyIngested)
}

package lineup_test

import (
	"errors"
	"testing"
	"time"

	"github.com/clubhq/teamsheet/internal/database"
	"github.com/clubhq/teamsheet/internal/lineup"
	"github.com/clubhq/teamsheet/internal/metrics"
	"github.com/clubhq/teamsheet/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spySink struct {
	committed []*lineup.Assignment
	err       error
}

func (s *spySink) CommitAssignment(a *lineup.Assignment) error {
	s.committed = append(s.committed, a)
	return s.err
}

func TestCommitterVersioning(t *testing.T) {
	sink := &spySink{}
	m := metrics.NewMock()
	c := lineup.NewCommitter(sink, m)

	first := &lineup.Assignment{ID: "a1", MatchID: "match1"}
	require.NoError(t, c.Commit(first, 0))
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, int64(1), c.Version("match1"))

	second := &lineup.Assignment{ID: "a2", MatchID: "match1"}
	require.NoError(t, c.Commit(second, 1))
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, "a2", c.Committed("match1").ID)
	assert.Len(t, sink.committed, 2)
	assert.Equal(t, 2, m.BalanceRunsCount)
}

func TestCommitterRejectsStaleCommit(t *testing.T) {
	c := lineup.NewCommitter(nil, nil)

	winner := &lineup.Assignment{ID: "a1", MatchID: "match1"}
	require.NoError(t, c.Commit(winner, 0))

	// A second run started before the first commit landed.
	stale := &lineup.Assignment{ID: "a2", MatchID: "match1"}
	err := c.Commit(stale, 0)
	var conflict *lineup.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "match1", conflict.MatchID)

	// Committed state still belongs to the winner.
	assert.Equal(t, "a1", c.Committed("match1").ID)
	assert.Equal(t, int64(1), c.Version("match1"))
}

func TestCommitterMatchesAreIndependent(t *testing.T) {
	c := lineup.NewCommitter(nil, nil)

	require.NoError(t, c.Commit(&lineup.Assignment{ID: "a1", MatchID: "match1"}, 0))
	require.NoError(t, c.Commit(&lineup.Assignment{ID: "b1", MatchID: "match2"}, 0))

	assert.Equal(t, int64(1), c.Version("match1"))
	assert.Equal(t, int64(1), c.Version("match2"))
	assert.Nil(t, c.Committed("match3"))
}

func TestCommitterRestoreContinuesVersioning(t *testing.T) {
	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer func() {
		dbTeardown()
		db.Close()
	}()
	st := store.New(db)

	asg := func(id, playerID string) *lineup.Assignment {
		return &lineup.Assignment{
			ID:      id,
			MatchID: "match1",
			Slots: []lineup.SlotAssignment{
				{Slot: 1, Side: lineup.TeamA, PlayerID: playerID, PlayerName: playerID, Rating: 5},
			},
			CreatedAt: time.Now(),
		}
	}

	first := lineup.NewCommitter(st, nil)
	require.NoError(t, first.Commit(asg("a1", "p1"), 0))

	// A later process restores from the persisted history and keeps
	// counting up instead of colliding with version 1.
	prev, err := st.LatestAssignment("match1")
	require.NoError(t, err)

	second := lineup.NewCommitter(st, nil)
	second.Restore(prev)
	require.NoError(t, second.Commit(asg("a2", "p2"), prev.Version))

	got, err := st.LatestAssignment("match1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, "p2", got.Slots[0].PlayerID)

	_, err = st.LatestAssignment("never-balanced")
	assert.ErrorIs(t, err, store.ErrNoAssignment)
}

func TestCommitterRestoreIgnoresStaleState(t *testing.T) {
	c := lineup.NewCommitter(nil, nil)
	require.NoError(t, c.Commit(&lineup.Assignment{ID: "a1", MatchID: "match1"}, 0))
	require.NoError(t, c.Commit(&lineup.Assignment{ID: "a2", MatchID: "match1"}, 1))

	c.Restore(&lineup.Assignment{ID: "a1", MatchID: "match1", Version: 1})
	assert.Equal(t, int64(2), c.Version("match1"))
	assert.Equal(t, "a2", c.Committed("match1").ID)
}

func TestCommitterSinkFailureIsNotFatal(t *testing.T) {
	sink := &spySink{err: errors.New("disk full")}
	c := lineup.NewCommitter(sink, nil)

	asg := &lineup.Assignment{ID: "a1", MatchID: "match1"}
	require.NoError(t, c.Commit(asg, 0))
	assert.Equal(t, int64(1), c.Version("match1"))
}

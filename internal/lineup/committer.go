package lineup

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/clubhq/teamsheet/internal/metrics"
)

// Committer serializes assignment commits per match. Each match carries a
// monotonically increasing version; a balancing run records the version it
// was based on, and its result is discarded when a newer commit already
// landed. Last committed assignment wins.
type Committer struct {
	mu        sync.Mutex
	sink      Sink
	metrics   metrics.Metrics
	versions  map[string]int64
	committed map[string]*Assignment
}

// NewCommitter creates a committer writing accepted assignments to the
// sink. Sink and metrics may be nil.
func NewCommitter(sink Sink, m metrics.Metrics) *Committer {
	return &Committer{
		sink:      sink,
		metrics:   m,
		versions:  make(map[string]int64),
		committed: make(map[string]*Assignment),
	}
}

// Version returns the currently committed assignment version for a match,
// zero when nothing has been committed yet. Balancing runs read this before
// starting and pass it to Commit.
func (c *Committer) Version(matchID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[matchID]
}

// Restore seeds versioning state from a previously persisted assignment so
// commits keep counting up across process restarts. Older versions than the
// one already tracked are ignored.
func (c *Committer) Restore(a *Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == nil || a.Version <= c.versions[a.MatchID] {
		return
	}
	c.versions[a.MatchID] = a.Version
	c.committed[a.MatchID] = a
}

// Committed returns the last committed assignment for a match, or nil.
func (c *Committer) Committed(matchID string) *Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed[matchID]
}

// Commit accepts an assignment produced against basedOn. When a newer
// version has landed since, the result is discarded and a ConflictError
// returned; the caller may re-balance against fresh state. Sink failure is
// logged and reported, never fatal.
func (c *Committer) Commit(a *Assignment, basedOn int64) error {
	c.mu.Lock()
	current := c.versions[a.MatchID]
	if current != basedOn {
		c.mu.Unlock()
		return &ConflictError{
			MatchID: a.MatchID,
			Reason:  "a newer assignment was committed during balancing",
		}
	}
	a.Version = current + 1
	c.versions[a.MatchID] = a.Version
	c.committed[a.MatchID] = a
	c.mu.Unlock()

	log.Info("Committed assignment", "matchID", a.MatchID, "version", a.Version, "diff", a.Diff())
	if c.metrics != nil {
		c.metrics.IncBalanceRuns()
	}

	if c.sink != nil {
		if err := c.sink.CommitAssignment(a); err != nil {
			log.Error("Failed to persist assignment", "error", err, "matchID", a.MatchID, "version", a.Version)
		}
	}
	return nil
}

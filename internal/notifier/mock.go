package notifier

import (
	"sync"

	"github.com/clubhq/teamsheet/internal/stats"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	PersonalBestBrokenFunc func(rec *stats.PersonalBestRecord) error
	SeasonClosedFunc       func(season stats.Season, table []stats.PlayerTotals) error

	// Call records
	PersonalBestBrokenCalls []stats.PersonalBestRecord
	SeasonClosedCalls       []struct {
		Season stats.Season
		Table  []stats.PlayerTotals
	}
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersonalBestBrokenCalls = nil
	m.SeasonClosedCalls = nil
}

func (m *Mock) PersonalBestBroken(rec *stats.PersonalBestRecord) error {
	m.mu.Lock()
	m.PersonalBestBrokenCalls = append(m.PersonalBestBrokenCalls, *rec)
	m.mu.Unlock()
	if m.PersonalBestBrokenFunc != nil {
		return m.PersonalBestBrokenFunc(rec)
	}
	return nil
}

func (m *Mock) SeasonClosed(season stats.Season, table []stats.PlayerTotals) error {
	m.mu.Lock()
	m.SeasonClosedCalls = append(m.SeasonClosedCalls, struct {
		Season stats.Season
		Table  []stats.PlayerTotals
	}{season, table})
	m.mu.Unlock()
	if m.SeasonClosedFunc != nil {
		return m.SeasonClosedFunc(season, table)
	}
	return nil
}

package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	BalanceRunsCount         int
	ResultsIngestedCount     int
	PersonalBestsBrokenCount int
	IngestDurations          []float64
	SinkFailuresCount        int
	NotifSentCount           int
	NotifFailedCount         int
	StartupTime              float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) IncBalanceRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BalanceRunsCount++
}

func (m *Mock) IncResultsIngested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResultsIngestedCount++
}

func (m *Mock) IncPersonalBestsBroken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersonalBestsBrokenCount++
}

func (m *Mock) ObserveIngestDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IngestDurations = append(m.IngestDurations, duration)
}

func (m *Mock) IncSinkFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SinkFailuresCount++
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifSentCount++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifFailedCount++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartupTime = duration
}

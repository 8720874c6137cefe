package player

import "sync"

// MockStore is a mock implementation of the Store interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	UpsertFunc         func(players []Info) error
	AddFunc            func(playerID, name string, rating float64)
	GetFunc            func(playerID string) (*Info, error)
	GetManyFunc        func(playerIDs []string) ([]Info, error)
	AllFunc            func() ([]Info, error)
	ActiveRosterFunc   func() ([]Info, error)
	SortedByRatingFunc func() ([]Info, error)
	IsKnownFunc        func(playerID string) bool
	DeactivateFunc     func(playerID string) error
	SetRatingFunc      func(playerID string, rating, confidence float64) error

	// Call records
	UpsertCalls    [][]Info
	SetRatingCalls []struct {
		PlayerID   string
		Rating     float64
		Confidence float64
	}
	DeactivateCalls []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Upsert(players []Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls = append(m.UpsertCalls, players)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(players)
	}
	return nil
}

func (m *MockStore) Add(playerID, name string, rating float64) {
	if m.AddFunc != nil {
		m.AddFunc(playerID, name, rating)
	}
}

func (m *MockStore) Get(playerID string) (*Info, error) {
	if m.GetFunc != nil {
		return m.GetFunc(playerID)
	}
	return nil, nil
}

func (m *MockStore) GetMany(playerIDs []string) ([]Info, error) {
	if m.GetManyFunc != nil {
		return m.GetManyFunc(playerIDs)
	}
	return nil, nil
}

func (m *MockStore) All() ([]Info, error) {
	if m.AllFunc != nil {
		return m.AllFunc()
	}
	return nil, nil
}

func (m *MockStore) ActiveRoster() ([]Info, error) {
	if m.ActiveRosterFunc != nil {
		return m.ActiveRosterFunc()
	}
	return nil, nil
}

func (m *MockStore) SortedByRating() ([]Info, error) {
	if m.SortedByRatingFunc != nil {
		return m.SortedByRatingFunc()
	}
	return nil, nil
}

func (m *MockStore) IsKnown(playerID string) bool {
	if m.IsKnownFunc != nil {
		return m.IsKnownFunc(playerID)
	}
	return false
}

func (m *MockStore) Deactivate(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeactivateCalls = append(m.DeactivateCalls, playerID)
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(playerID)
	}
	return nil
}

func (m *MockStore) SetRating(playerID string, rating, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetRatingCalls = append(m.SetRatingCalls, struct {
		PlayerID   string
		Rating     float64
		Confidence float64
	}{playerID, rating, confidence})
	if m.SetRatingFunc != nil {
		return m.SetRatingFunc(playerID, rating, confidence)
	}
	return nil
}

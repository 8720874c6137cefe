package player

// Store defines the interface for the player registry. Players are never
// deleted, only deactivated. Ratings are written exclusively by the
// statistics aggregator through SetRating.
type Store interface {
	Upsert(players []Info) error
	Add(playerID, name string, rating float64)
	Get(playerID string) (*Info, error)
	GetMany(playerIDs []string) ([]Info, error)
	All() ([]Info, error)
	ActiveRoster() ([]Info, error)
	SortedByRating() ([]Info, error)
	IsKnown(playerID string) bool
	Deactivate(playerID string) error
	SetRating(playerID string, rating, confidence float64) error
}

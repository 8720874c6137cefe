package player

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultRating is the rating assigned to players we know nothing about,
// the middle of the 0-10 scale.
const DefaultRating = 5.0

// DefaultConfidence is the starting rating spread for a new player.
const DefaultConfidence = 1.0

// New creates a new player store backed by the given database.
func New(db *sql.DB) Store {
	return &store{db: db}
}

// Upsert inserts or updates a batch of players in a single transaction.
// Rating and confidence of existing players are left untouched; only the
// aggregator moves those, through SetRating.
func (s *store) Upsert(players []Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(players) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO players (id, name, rating, confidence, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	for _, p := range players {
		rating := p.Rating
		if rating == 0 {
			rating = DefaultRating
		}
		confidence := p.Confidence
		if confidence == 0 {
			confidence = DefaultConfidence
		}
		if _, err := tx.Exec(query, p.ID, p.Name, rating, confidence); err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit player upsert: %w", err)
	}
	log.Debug("Upserted players", "count", len(players))
	return nil
}

// Add inserts a single player with the given rating and default confidence.
func (s *store) Add(playerID, name string, rating float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO players (id, name, rating, confidence, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, rating = excluded.rating
	`
	if _, err := s.db.Exec(query, playerID, name, rating, DefaultConfidence); err != nil {
		log.Error("Failed to add player", "error", err, "playerID", playerID)
	}
}

// Get retrieves a single player by ID.
func (s *store) Get(playerID string) (*Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT id, name, rating, confidence, active FROM players WHERE id = ?`, playerID)
	var p Info
	if err := row.Scan(&p.ID, &p.Name, &p.Rating, &p.Confidence, &p.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("player not found: %s", playerID)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

// GetMany retrieves the players matching the given IDs. IDs that are not
// known are silently omitted from the result.
func (s *store) GetMany(playerIDs []string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(playerIDs) == 0 {
		return []Info{}, nil
	}

	placeholders := strings.Repeat("?,", len(playerIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT id, name, rating, confidence, active FROM players WHERE id IN (%s)`, placeholders)

	args := make([]any, len(playerIDs))
	for i, id := range playerIDs {
		args[i] = id
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

// All returns every player, active or not, in ID order.
func (s *store) All() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, rating, confidence, active FROM players ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

// ActiveRoster returns all active players in ID order.
func (s *store) ActiveRoster() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, rating, confidence, active FROM players WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active roster: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

// SortedByRating returns all active players, strongest first.
func (s *store) SortedByRating() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, rating, confidence, active FROM players WHERE active = 1 ORDER BY rating DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players by rating: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

// IsKnown reports whether a player exists in the registry.
func (s *store) IsKnown(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow(`SELECT id FROM players WHERE id = ?`, playerID).Scan(&id)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error("Failed to check player existence", "error", err, "playerID", playerID)
		}
		return false
	}
	return true
}

// Deactivate marks a player inactive. The player and their history remain.
func (s *store) Deactivate(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`UPDATE players SET active = 0 WHERE id = ?`, playerID)
	if err != nil {
		return fmt.Errorf("failed to deactivate player: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("player not found: %s", playerID)
	}
	log.Info("Deactivated player", "playerID", playerID)
	return nil
}

// SetRating writes a player's rating and confidence. Only the statistics
// aggregator should call this.
func (s *store) SetRating(playerID string, rating, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`UPDATE players SET rating = ?, confidence = ? WHERE id = ?`, rating, confidence, playerID)
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("player not found: %s", playerID)
	}
	log.Debug("Updated rating", "playerID", playerID, "rating", rating, "confidence", confidence)
	return nil
}

func scanPlayers(rows *sql.Rows) ([]Info, error) {
	players := []Info{}
	for rows.Next() {
		var p Info
		if err := rows.Scan(&p.ID, &p.Name, &p.Rating, &p.Confidence, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

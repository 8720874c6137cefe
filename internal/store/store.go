package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clubhq/teamsheet/internal/ingest"
	"github.com/clubhq/teamsheet/internal/lineup"
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/stats"
)

// ErrNoAssignment is returned when a match has never been balanced.
var ErrNoAssignment = errors.New("no assignment committed")

// Store is the sqlite-backed persistence sink for the engine: committed
// assignments, ingested match results and aggregate deltas land here. The
// in-memory engine state stays authoritative for the running process; the
// store feeds rebuilds and restarts.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ lineup.Sink   = (*Store)(nil)
	_ ingest.Sink   = (*Store)(nil)
	_ stats.Sink    = (*Store)(nil)
	_ stats.History = (*Store)(nil)
)

// New creates a persistence store backed by the given database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CommitAssignment persists a committed line-up. Earlier versions of the
// same match are kept for audit.
func (s *Store) CommitAssignment(a *lineup.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(a.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	query := `
		INSERT INTO assignments (match_id, version, slots_json, rating_diff, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, a.MatchID, a.Version, blob, a.Diff(), a.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	log.Debug("Persisted assignment", "matchID", a.MatchID, "version", a.Version)
	return nil
}

// LatestAssignment returns the highest committed version for a match.
func (s *Store) LatestAssignment(matchID string) (*lineup.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT match_id, version, slots_json, created_at
		FROM assignments
		WHERE match_id = ?
		ORDER BY version DESC
		LIMIT 1
	`
	row := s.db.QueryRow(query, matchID)

	var a lineup.Assignment
	var blob []byte
	var createdAt int64
	if err := row.Scan(&a.MatchID, &a.Version, &blob, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("match %s: %w", matchID, ErrNoAssignment)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if err := json.Unmarshal(blob, &a.Slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0)
	for _, slot := range a.Slots {
		if slot.Side == lineup.TeamA {
			a.RatingA += slot.Rating
		} else {
			a.RatingB += slot.Rating
		}
	}
	return &a, nil
}

// CommitMatchResult persists an ingested result into its season's history.
func (s *Store) CommitMatchResult(res *match.Result, seasonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(res.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	query := `
		INSERT INTO match_results (id, season_id, played_at, home_goals, away_goals, entries_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	if _, err := s.db.Exec(query, res.MatchID, seasonID, res.PlayedAt.Unix(), res.HomeGoals, res.AwayGoals, blob); err != nil {
		return fmt.Errorf("failed to insert match result: %w", err)
	}
	return nil
}

// RemoveMatchResult deletes a retracted result from the history.
func (s *Store) RemoveMatchResult(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM match_results WHERE id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to delete match result: %w", err)
	}
	log.Info("Removed match result from history", "matchID", matchID)
	return nil
}

// ResultsForSeason loads a season's full history ordered by played date.
func (s *Store) ResultsForSeason(seasonID string) ([]match.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, played_at, home_goals, away_goals, entries_json
		FROM match_results
		WHERE season_id = ?
		ORDER BY played_at ASC, id ASC
	`
	rows, err := s.db.Query(query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query season history: %w", err)
	}
	defer rows.Close()

	var results []match.Result
	for rows.Next() {
		var res match.Result
		var playedAt int64
		var blob []byte
		if err := rows.Scan(&res.MatchID, &playedAt, &res.HomeGoals, &res.AwayGoals, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan match result row: %w", err)
		}
		res.PlayedAt = time.Unix(playedAt, 0)
		if err := json.Unmarshal(blob, &res.Entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entries: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// CommitAggregateDelta persists the season rows and personal bests touched
// by one applied result, in a single transaction.
func (s *Store) CommitAggregateDelta(d *stats.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rowQuery := `
		INSERT INTO season_stats (season_id, player_id, played, wins, draws, losses, goals, assists, goal_diff, points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(season_id, player_id) DO UPDATE SET
			played = excluded.played,
			wins = excluded.wins,
			draws = excluded.draws,
			losses = excluded.losses,
			goals = excluded.goals,
			assists = excluded.assists,
			goal_diff = excluded.goal_diff,
			points = excluded.points
	`
	for _, row := range d.Rows {
		if _, err := tx.Exec(rowQuery, d.SeasonID, row.PlayerID, row.Played, row.Wins, row.Draws, row.Losses, row.Goals, row.Assists, row.GoalDiff, row.Points); err != nil {
			return fmt.Errorf("failed to upsert season stats for %s: %w", row.PlayerID, err)
		}
	}

	bestQuery := `
		INSERT INTO personal_bests (metric, value, player_id, player_name, match_id, set_at, previous_value, previous_player_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(metric) DO UPDATE SET
			value = excluded.value,
			player_id = excluded.player_id,
			player_name = excluded.player_name,
			match_id = excluded.match_id,
			set_at = excluded.set_at,
			previous_value = excluded.previous_value,
			previous_player_id = excluded.previous_player_id
	`
	for _, rec := range d.Bests {
		if _, err := tx.Exec(bestQuery, string(rec.Metric), rec.Value, rec.PlayerID, rec.PlayerName, rec.MatchID, rec.SetAt.Unix(), rec.PreviousValue, rec.PreviousPlayerID); err != nil {
			return fmt.Errorf("failed to upsert personal best %s: %w", rec.Metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aggregate delta: %w", err)
	}
	return nil
}

// PersonalBests loads the persisted records, for seeding the aggregator at
// startup.
func (s *Store) PersonalBests() ([]stats.PersonalBestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT metric, value, player_id, player_name, match_id, set_at, previous_value, previous_player_id
		FROM personal_bests
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query personal bests: %w", err)
	}
	defer rows.Close()

	var recs []stats.PersonalBestRecord
	for rows.Next() {
		var rec stats.PersonalBestRecord
		var metric string
		var setAt int64
		var prevValue sql.NullInt64
		var prevPlayer sql.NullString
		if err := rows.Scan(&metric, &rec.Value, &rec.PlayerID, &rec.PlayerName, &rec.MatchID, &setAt, &prevValue, &prevPlayer); err != nil {
			return nil, fmt.Errorf("failed to scan personal best row: %w", err)
		}
		rec.Metric = stats.Metric(metric)
		rec.SetAt = time.Unix(setAt, 0)
		rec.PreviousValue = int(prevValue.Int64)
		rec.PreviousPlayerID = prevPlayer.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpsertSeason persists a season definition.
func (s *Store) UpsertSeason(season stats.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO seasons (id, name, start_date, half_date, end_date, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			half_date = excluded.half_date,
			end_date = excluded.end_date,
			state = excluded.state
	`
	_, err := s.db.Exec(query, season.ID, season.Name, season.Start.Unix(), season.Half.Unix(), season.End.Unix(), string(season.State))
	if err != nil {
		return fmt.Errorf("failed to upsert season: %w", err)
	}
	return nil
}

// Seasons loads every persisted season definition, oldest first.
func (s *Store) Seasons() ([]stats.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, start_date, half_date, end_date, state FROM seasons ORDER BY start_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	var seasons []stats.Season
	for rows.Next() {
		var season stats.Season
		var start, half, end int64
		var state string
		if err := rows.Scan(&season.ID, &season.Name, &start, &half, &end, &state); err != nil {
			return nil, fmt.Errorf("failed to scan season row: %w", err)
		}
		season.Start = time.Unix(start, 0)
		season.Half = time.Unix(half, 0)
		season.End = time.Unix(end, 0)
		season.State = stats.SeasonState(state)
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}

package stats

import (
	"time"
)

// SeasonState is the lifecycle state of a season.
type SeasonState string

const (
	SeasonOpen   SeasonState = "OPEN"
	SeasonClosed SeasonState = "CLOSED"
)

// Season bounds one competitive period. Results are aggregated into the
// season whose date range contains them.
type Season struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Start time.Time   `json:"start"`
	Half  time.Time   `json:"half"`
	End   time.Time   `json:"end"`
	State SeasonState `json:"state"`
}

// Contains reports whether t falls inside the season's date range,
// boundaries included.
func (s Season) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// PlayerTotals is one player's cumulative line in a season table.
type PlayerTotals struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Played     int    `json:"played"`
	Wins       int    `json:"wins"`
	Draws      int    `json:"draws"`
	Losses     int    `json:"losses"`
	Goals      int    `json:"goals"`
	Assists    int    `json:"assists"`
	GoalDiff   int    `json:"goal_diff"`
	Points     int    `json:"points"`
}

// Metric names a tracked personal-best category.
type Metric string

const (
	MetricGoals   Metric = "goals-in-a-match"
	MetricAssists Metric = "assists-in-a-match"
)

// Metrics lists the tracked personal-best categories in display order.
var Metrics = []Metric{MetricGoals, MetricAssists}

// PersonalBestRecord is the current best value for one metric, with the
// record it superseded. It is replaced only by a strictly greater value;
// the first achiever keeps precedence on ties.
type PersonalBestRecord struct {
	Metric           Metric    `json:"metric"`
	Value            int       `json:"value"`
	PlayerID         string    `json:"player_id"`
	PlayerName       string    `json:"player_name"`
	MatchID          string    `json:"match_id"`
	SetAt            time.Time `json:"set_at"`
	PreviousValue    int       `json:"previous_value"`
	PreviousPlayerID string    `json:"previous_player_id"`
}

// RatingChange records one player's rating adjustment from a processed match.
type RatingChange struct {
	PlayerID      string  `json:"player_id"`
	Old           float64 `json:"old"`
	New           float64 `json:"new"`
	OldConfidence float64 `json:"old_confidence"`
	NewConfidence float64 `json:"new_confidence"`
}

// RacePoint is the points awarded per player by one match, in played order.
// The query facade accumulates these into race-to-date series.
type RacePoint struct {
	MatchID  string         `json:"match_id"`
	PlayedAt time.Time      `json:"played_at"`
	Points   map[string]int `json:"points"`
}

// Delta is the full effect of applying one match result: the updated table
// rows, any personal bests broken, and the rating adjustments. It is what
// the persistence sink receives after the in-memory commit.
type Delta struct {
	SeasonID  string               `json:"season_id"`
	MatchID   string               `json:"match_id"`
	AppliedAt time.Time            `json:"applied_at"`
	Rows      []PlayerTotals       `json:"rows"`
	Bests     []PersonalBestRecord `json:"bests,omitempty"`
	Ratings   []RatingChange       `json:"ratings,omitempty"`
}

// ApplyOptions tunes a single Apply call.
type ApplyOptions struct {
	// Backfill force-appends a result into a season that is already
	// closed or whose end date has passed.
	Backfill bool
}

package stats

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clubhq/teamsheet/internal/lineup"
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/metrics"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/pubsub"
)

// seasonAgg is the in-memory aggregate of one season. Mutations are
// serialized through its mutex; different seasons proceed in parallel.
type seasonAgg struct {
	mu      sync.Mutex
	season  Season
	rows    map[string]*PlayerTotals
	race    []RacePoint
	applied map[string]*Delta
}

// Aggregator is the sole writer of season aggregates, personal bests and
// player ratings. Applying one match result is a single atomic step; a
// failed apply leaves every aggregate exactly as before the call.
type Aggregator struct {
	mu      sync.RWMutex // guards the seasons map and season state
	seasons map[string]*seasonAgg

	bestMu sync.Mutex
	bests  map[Metric]*PersonalBestRecord

	players   player.Store
	sink      Sink
	history   History
	notifier  Notifier
	publisher Publisher
	metrics   metrics.Metrics
}

// New creates an Aggregator. Sink, history, notifier, publisher and metrics
// may be nil; the corresponding side effects are then skipped.
func New(players player.Store, sink Sink, history History, notifier Notifier, publisher Publisher, m metrics.Metrics) *Aggregator {
	return &Aggregator{
		seasons:   make(map[string]*seasonAgg),
		bests:     make(map[Metric]*PersonalBestRecord),
		players:   players,
		sink:      sink,
		history:   history,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
	}
}

// AddSeason registers a season. Ranges must be well-formed and must not
// overlap an existing season.
func (a *Aggregator) AddSeason(s Season) error {
	if s.ID == "" {
		return &match.ValidationError{Rule: "season", Detail: "season ID is required"}
	}
	if !s.Start.Before(s.End) {
		return &match.ValidationError{Rule: "season", Detail: fmt.Sprintf("season %s start must precede end", s.ID)}
	}
	if s.Half.Before(s.Start) || s.Half.After(s.End) {
		return &match.ValidationError{Rule: "season", Detail: fmt.Sprintf("season %s half date must fall inside the range", s.ID)}
	}
	if s.State == "" {
		s.State = SeasonOpen
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.seasons[s.ID]; exists {
		return &match.ValidationError{Rule: "season", Detail: fmt.Sprintf("season %s already registered", s.ID)}
	}
	for _, other := range a.seasons {
		o := other.season
		if s.Start.Before(o.End) && o.Start.Before(s.End) {
			return &match.ValidationError{Rule: "season", Detail: fmt.Sprintf("season %s overlaps season %s", s.ID, o.ID)}
		}
	}

	a.seasons[s.ID] = &seasonAgg{
		season:  s,
		rows:    make(map[string]*PlayerTotals),
		applied: make(map[string]*Delta),
	}
	log.Info("Registered season", "seasonID", s.ID, "start", s.Start, "end", s.End)
	return nil
}

// Season returns a registered season by ID.
func (a *Aggregator) Season(seasonID string) (Season, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sa, ok := a.seasons[seasonID]
	if !ok {
		return Season{}, fmt.Errorf("season not found: %s", seasonID)
	}
	return sa.season, nil
}

// Seasons returns all registered seasons ordered by start date.
func (a *Aggregator) Seasons() []Season {
	a.mu.RLock()
	defer a.mu.RUnlock()
	seasons := make([]Season, 0, len(a.seasons))
	for _, sa := range a.seasons {
		seasons = append(seasons, sa.season)
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Start.Before(seasons[j].Start) })
	return seasons
}

// SeedBests loads previously persisted personal-best records, typically at
// startup before any result is applied.
func (a *Aggregator) SeedBests(recs []PersonalBestRecord) {
	a.bestMu.Lock()
	defer a.bestMu.Unlock()
	for _, rec := range recs {
		r := rec
		a.bests[rec.Metric] = &r
	}
}

// seasonFor locates the season aggregate covering t. A nil seasonAgg means
// no season covers the date at all; a non-nil seasonAgg together with a
// SeasonClosedError means the result may still be force-appended with the
// backfill flag.
func (a *Aggregator) seasonFor(t time.Time, matchID string) (*seasonAgg, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var latest *seasonAgg
	for _, sa := range a.seasons {
		s := sa.season
		if s.Contains(t) {
			if s.State == SeasonClosed {
				return sa, &SeasonClosedError{SeasonID: s.ID, MatchID: matchID, End: s.End}
			}
			return sa, nil
		}
		if !s.Start.After(t) && (latest == nil || s.Start.After(latest.season.Start)) {
			latest = sa
		}
	}
	if latest != nil {
		// Dated after the season's end.
		return latest, &SeasonClosedError{SeasonID: latest.season.ID, MatchID: matchID, End: latest.season.End}
	}
	return nil, &match.ValidationError{Rule: "season", Detail: fmt.Sprintf("no season covers date %s", t.Format("2006-01-02"))}
}

// Apply folds one match result into its season: table counters, personal
// bests and rating adjustments, in one atomic step under the season's
// mutex. Re-applying an already applied match returns the original delta
// without touching anything.
func (a *Aggregator) Apply(res *match.Result, opts ApplyOptions) (*Delta, error) {
	sa, err := a.seasonFor(res.PlayedAt, res.MatchID)
	if sa == nil {
		return nil, err
	}
	if err != nil {
		if !opts.Backfill {
			return nil, err
		}
		log.Warn("Backfilling result into closed season", "matchID", res.MatchID, "seasonID", sa.season.ID)
	}

	sa.mu.Lock()
	defer sa.mu.Unlock()

	if prior, ok := sa.applied[res.MatchID]; ok {
		log.Debug("Result already applied", "matchID", res.MatchID)
		return prior, nil
	}

	// Resolve every participant before mutating anything.
	ids := entryPlayerIDs(res)
	infos, err := a.players.GetMany(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve players: %w", err)
	}
	byID := make(map[string]player.Info, len(infos))
	for _, p := range infos {
		byID[p.ID] = p
	}
	names := make(map[string]string, len(ids))
	var sideA, sideB []player.Info
	for _, e := range res.Entries {
		p, known := byID[e.PlayerID]
		if !known {
			return nil, &match.ValidationError{Rule: "player", Detail: fmt.Sprintf("unknown player %s", e.PlayerID)}
		}
		names[p.ID] = p.Name
		if e.Side == lineup.TeamA {
			sideA = append(sideA, p)
		} else {
			sideB = append(sideB, p)
		}
	}

	changes := updateRatings(sideA, sideB, res.HomeGoals, res.AwayGoals)

	// Point of no return: all inputs validated, mutate the aggregate.
	delta := &Delta{
		SeasonID:  sa.season.ID,
		MatchID:   res.MatchID,
		AppliedAt: time.Now(),
		Ratings:   changes,
	}

	rp := applyCounters(sa.rows, names, res)
	sa.race = insertRacePoint(sa.race, rp)
	for _, id := range ids {
		delta.Rows = append(delta.Rows, *sa.rows[id])
	}

	delta.Bests = a.updateBests(res, names)

	for _, ch := range changes {
		if err := a.players.SetRating(ch.PlayerID, ch.New, ch.NewConfidence); err != nil {
			log.Error("Failed to store rating", "error", err, "playerID", ch.PlayerID)
		}
	}

	sa.applied[res.MatchID] = delta

	a.commitDelta(delta)
	a.announce(delta)

	log.Info("Applied match result",
		"matchID", res.MatchID,
		"seasonID", sa.season.ID,
		"players", len(ids),
		"bestsBroken", len(delta.Bests),
	)
	return delta, nil
}

// Rebuild replays a season's full ordered match history into a fresh
// aggregate, replacing the incremental one. The result is identical to the
// incremental path; ratings and personal bests are not re-applied, they
// evolve only on first ingestion.
func (a *Aggregator) Rebuild(seasonID string) error {
	a.mu.RLock()
	sa, ok := a.seasons[seasonID]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("season not found: %s", seasonID)
	}
	if a.history == nil {
		return fmt.Errorf("no history source configured")
	}

	results, err := a.history.ResultsForSeason(seasonID)
	if err != nil {
		return fmt.Errorf("failed to load season history: %w", err)
	}

	// History must replay in played order regardless of storage order.
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].PlayedAt.Equal(results[j].PlayedAt) {
			return results[i].PlayedAt.Before(results[j].PlayedAt)
		}
		return results[i].MatchID < results[j].MatchID
	})

	var allIDs []string
	seen := make(map[string]bool)
	for i := range results {
		for _, id := range entryPlayerIDs(&results[i]) {
			if !seen[id] {
				seen[id] = true
				allIDs = append(allIDs, id)
			}
		}
	}
	infos, err := a.players.GetMany(allIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve players: %w", err)
	}
	names := make(map[string]string, len(infos))
	for _, p := range infos {
		names[p.ID] = p.Name
	}

	rows := make(map[string]*PlayerTotals)
	var race []RacePoint
	applied := make(map[string]*Delta)
	for i := range results {
		res := &results[i]
		rp := applyCounters(rows, names, res)
		race = append(race, rp)
		delta := &Delta{SeasonID: seasonID, MatchID: res.MatchID, AppliedAt: time.Now()}
		for _, id := range entryPlayerIDs(res) {
			delta.Rows = append(delta.Rows, *rows[id])
		}
		applied[res.MatchID] = delta
	}

	sa.mu.Lock()
	sa.rows = rows
	sa.race = race
	sa.applied = applied
	sa.mu.Unlock()

	log.Info("Rebuilt season aggregate", "seasonID", seasonID, "results", len(results))
	return nil
}

// CloseDueSeasons transitions every open season whose end date has passed
// to Closed, and notifies with the final table. It returns the seasons it
// closed.
func (a *Aggregator) CloseDueSeasons(now time.Time) []Season {
	type closing struct {
		season Season
		table  []PlayerTotals
	}
	var closed []closing

	a.mu.Lock()
	for _, sa := range a.seasons {
		if sa.season.State == SeasonOpen && sa.season.End.Before(now) {
			sa.season.State = SeasonClosed
			sa.mu.Lock()
			table := copyRows(sa.rows)
			sa.mu.Unlock()
			SortTable(table)
			closed = append(closed, closing{season: sa.season, table: table})
		}
	}
	a.mu.Unlock()

	var seasons []Season
	for _, c := range closed {
		log.Info("Closed season", "seasonID", c.season.ID)
		seasons = append(seasons, c.season)
		if a.notifier != nil {
			if err := a.notifier.SeasonClosed(c.season, c.table); err != nil {
				log.Error("Failed to send season-closed notification", "error", err, "seasonID", c.season.ID)
			}
		}
		if a.publisher != nil {
			if err := a.publisher.SendMessage(string(pubsub.EventSeasonClosed), c.season); err != nil {
				log.Error("Failed to publish season-closed event", "error", err, "seasonID", c.season.ID)
			}
		}
	}
	return seasons
}

// SeasonTable returns a copy of a season's per-player totals, unsorted.
func (a *Aggregator) SeasonTable(seasonID string) ([]PlayerTotals, error) {
	a.mu.RLock()
	sa, ok := a.seasons[seasonID]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("season not found: %s", seasonID)
	}

	sa.mu.Lock()
	defer sa.mu.Unlock()
	return copyRows(sa.rows), nil
}

// AllTimeTotals merges every season's totals per player.
func (a *Aggregator) AllTimeTotals() []PlayerTotals {
	merged := make(map[string]*PlayerTotals)
	for _, s := range a.Seasons() {
		rows, err := a.SeasonTable(s.ID)
		if err != nil {
			continue
		}
		for _, row := range rows {
			t, ok := merged[row.PlayerID]
			if !ok {
				t = &PlayerTotals{PlayerID: row.PlayerID, PlayerName: row.PlayerName}
				merged[row.PlayerID] = t
			}
			t.PlayerName = row.PlayerName
			t.Played += row.Played
			t.Wins += row.Wins
			t.Draws += row.Draws
			t.Losses += row.Losses
			t.Goals += row.Goals
			t.Assists += row.Assists
			t.GoalDiff += row.GoalDiff
			t.Points += row.Points
		}
	}

	totals := make([]PlayerTotals, 0, len(merged))
	for _, t := range merged {
		totals = append(totals, *t)
	}
	return totals
}

// RaceLog returns the per-match points awarded in a season, in played order.
func (a *Aggregator) RaceLog(seasonID string) ([]RacePoint, error) {
	a.mu.RLock()
	sa, ok := a.seasons[seasonID]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("season not found: %s", seasonID)
	}

	sa.mu.Lock()
	defer sa.mu.Unlock()

	race := make([]RacePoint, len(sa.race))
	for i, rp := range sa.race {
		points := make(map[string]int, len(rp.Points))
		for id, p := range rp.Points {
			points[id] = p
		}
		race[i] = RacePoint{MatchID: rp.MatchID, PlayedAt: rp.PlayedAt, Points: points}
	}
	return race, nil
}

// PersonalBests returns the current records in metric display order.
func (a *Aggregator) PersonalBests() []PersonalBestRecord {
	a.bestMu.Lock()
	defer a.bestMu.Unlock()

	var recs []PersonalBestRecord
	for _, m := range Metrics {
		if rec, ok := a.bests[m]; ok {
			recs = append(recs, *rec)
		}
	}
	return recs
}

// updateBests replaces records beaten by this result. Equal values never
// supersede: the first achiever keeps the record.
func (a *Aggregator) updateBests(res *match.Result, names map[string]string) []PersonalBestRecord {
	a.bestMu.Lock()
	defer a.bestMu.Unlock()

	var broken []PersonalBestRecord
	for _, e := range res.Entries {
		for _, m := range Metrics {
			value := 0
			switch m {
			case MetricGoals:
				value = e.Goals
			case MetricAssists:
				value = e.Assists
			}
			if value <= 0 {
				continue
			}
			current := a.bests[m]
			if current != nil && value <= current.Value {
				continue
			}
			rec := &PersonalBestRecord{
				Metric:     m,
				Value:      value,
				PlayerID:   e.PlayerID,
				PlayerName: names[e.PlayerID],
				MatchID:    res.MatchID,
				SetAt:      res.PlayedAt,
			}
			if current != nil {
				rec.PreviousValue = current.Value
				rec.PreviousPlayerID = current.PlayerID
			}
			a.bests[m] = rec
			broken = append(broken, *rec)
		}
	}
	return broken
}

func (a *Aggregator) commitDelta(delta *Delta) {
	if a.sink == nil {
		return
	}
	if err := a.sink.CommitAggregateDelta(delta); err != nil {
		log.Error("Failed to persist aggregate delta", "error", err, "matchID", delta.MatchID)
		if a.metrics != nil {
			a.metrics.IncSinkFailures()
		}
	}
}

func (a *Aggregator) announce(delta *Delta) {
	if a.metrics != nil {
		for range delta.Bests {
			a.metrics.IncPersonalBestsBroken()
		}
	}
	if a.notifier != nil {
		for i := range delta.Bests {
			if err := a.notifier.PersonalBestBroken(&delta.Bests[i]); err != nil {
				log.Error("Failed to send personal-best notification", "error", err, "metric", delta.Bests[i].Metric)
			}
		}
	}
	if a.publisher != nil {
		if err := a.publisher.SendMessage(string(pubsub.EventStatsUpdated), delta); err != nil {
			log.Error("Failed to publish aggregate delta", "error", err, "matchID", delta.MatchID)
		}
	}
}

// insertRacePoint keeps the race log in played order even when results
// arrive late; ties on date fall back to match ID, the same order Rebuild
// replays in.
func insertRacePoint(race []RacePoint, rp RacePoint) []RacePoint {
	race = append(race, rp)
	sort.SliceStable(race, func(i, j int) bool {
		if !race[i].PlayedAt.Equal(race[j].PlayedAt) {
			return race[i].PlayedAt.Before(race[j].PlayedAt)
		}
		return race[i].MatchID < race[j].MatchID
	})
	return race
}

// applyCounters folds one result into the rows map and returns the points
// awarded per player. Both the incremental path and Rebuild go through
// here, which is what keeps the two paths equivalent.
func applyCounters(rows map[string]*PlayerTotals, names map[string]string, res *match.Result) RacePoint {
	rp := RacePoint{MatchID: res.MatchID, PlayedAt: res.PlayedAt, Points: make(map[string]int)}

	for _, e := range res.Entries {
		row, ok := rows[e.PlayerID]
		if !ok {
			row = &PlayerTotals{PlayerID: e.PlayerID, PlayerName: names[e.PlayerID]}
			rows[e.PlayerID] = row
		}
		row.Played++
		row.Goals += e.Goals
		row.Assists += e.Assists

		ours := res.TeamGoals(e.Side)
		theirs := res.HomeGoals + res.AwayGoals - ours
		row.GoalDiff += ours - theirs
		points := 0
		switch {
		case ours > theirs:
			row.Wins++
			points = 3
		case ours < theirs:
			row.Losses++
		default:
			row.Draws++
			points = 1
		}
		row.Points += points
		rp.Points[e.PlayerID] = points
	}
	return rp
}

func entryPlayerIDs(res *match.Result) []string {
	ids := make([]string, 0, len(res.Entries))
	seen := make(map[string]bool, len(res.Entries))
	for _, e := range res.Entries {
		if !seen[e.PlayerID] {
			seen[e.PlayerID] = true
			ids = append(ids, e.PlayerID)
		}
	}
	return ids
}

func copyRows(rows map[string]*PlayerTotals) []PlayerTotals {
	out := make([]PlayerTotals, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clubhq/teamsheet/internal/database"
	"github.com/clubhq/teamsheet/internal/ingest"
	"github.com/clubhq/teamsheet/internal/lineup"
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/query"
	"github.com/clubhq/teamsheet/internal/stats"
	"github.com/clubhq/teamsheet/internal/store"
)

// engine bundles the wired-up core for one CLI invocation.
type engine struct {
	players     player.Store
	persistence *store.Store
	agg         *stats.Aggregator
	ingestor    *ingest.Ingestor
	facade      *query.Facade
	teardown    func()
}

func openEngine() (*engine, error) {
	db, dbTeardown, err := database.InitDB(dbPath, "", "", migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	players := player.New(db)
	persistence := store.New(db)
	agg := stats.New(players, persistence, persistence, nil, nil, nil)

	seasons, err := persistence.Seasons()
	if err != nil {
		dbTeardown()
		return nil, err
	}
	for _, season := range seasons {
		if err := agg.AddSeason(season); err != nil {
			dbTeardown()
			return nil, err
		}
		if err := agg.Rebuild(season.ID); err != nil {
			dbTeardown()
			return nil, err
		}
	}
	bests, err := persistence.PersonalBests()
	if err != nil {
		dbTeardown()
		return nil, err
	}
	agg.SeedBests(bests)

	return &engine{
		players:     players,
		persistence: persistence,
		agg:         agg,
		ingestor:    ingest.New(players, agg, persistence, nil),
		facade:      query.New(agg, players),
		teardown:    dbTeardown,
	}, nil
}

func init() {
	rootCmd.AddCommand(addPlayerCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(addSeasonCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(retractCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(legendsCmd)
	rootCmd.AddCommand(raceCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(closeSeasonsCmd)

	balanceCmd.Flags().Int("size", 10, "Total number of slots on the sheet")
	balanceCmd.Flags().StringSlice("lock", nil, "Slot locks as slot=playerID, repeatable")
	ingestCmd.Flags().Bool("backfill", false, "Force-append into a closed season")
	addSeasonCmd.Flags().String("name", "", "Display name of the season")
}

var addPlayerCmd = &cobra.Command{
	Use:   "add-player <id> <name> [rating]",
	Short: "Add a player to the registry",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		rating := player.DefaultRating
		if len(args) == 3 {
			rating, err = strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid rating %q: %w", args[2], err)
			}
		}
		eng.players.Add(args[0], args[1], rating)
		fmt.Printf("Added %s (%s) with rating %.1f\n", args[1], args[0], rating)
		return nil
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the registered players, strongest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		players, err := eng.players.SortedByRating()
		if err != nil {
			return err
		}
		for _, p := range players {
			fmt.Printf("%-20s %-16s rating %.2f (±%.2f)\n", p.Name, p.ID, p.Rating, p.Confidence)
		}
		return nil
	},
}

var addSeasonCmd = &cobra.Command{
	Use:   "add-season <id> <start> <end>",
	Short: "Register a season (dates as YYYY-MM-DD)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		start, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		end, err := time.Parse("2006-01-02", args[2])
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = args[0]
		}

		season := stats.Season{
			ID:    args[0],
			Name:  name,
			Start: start,
			Half:  start.Add(end.Sub(start) / 2),
			End:   end,
			State: stats.SeasonOpen,
		}
		if err := eng.agg.AddSeason(season); err != nil {
			return err
		}
		if err := eng.persistence.UpsertSeason(season); err != nil {
			return err
		}
		fmt.Printf("Registered season %s (%s to %s)\n", season.ID, args[1], args[2])
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [matchID]",
	Short: "Balance the active roster into two sides",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		matchID := uuid.New().String()
		if len(args) == 1 {
			matchID = args[0]
		}
		size, _ := cmd.Flags().GetInt("size")
		locks, _ := cmd.Flags().GetStringSlice("lock")

		sheet, err := lineup.NewSheet(matchID, size)
		if err != nil {
			return err
		}
		for _, l := range locks {
			parts := strings.SplitN(l, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("invalid lock %q, expected slot=playerID", l)
			}
			slot, err := strconv.Atoi(parts[0])
			if err != nil {
				return fmt.Errorf("invalid slot in lock %q: %w", l, err)
			}
			if err := sheet.Lock(slot, parts[1]); err != nil {
				return err
			}
		}

		roster, err := eng.players.ActiveRoster()
		if err != nil {
			return err
		}
		asg, err := lineup.Balance(roster, sheet)
		if err != nil {
			return err
		}

		// Each invocation is a fresh process, so pick the version
		// sequence back up from the persisted history.
		committer := lineup.NewCommitter(eng.persistence, nil)
		var basedOn int64
		prev, err := eng.persistence.LatestAssignment(matchID)
		switch {
		case err == nil:
			committer.Restore(prev)
			basedOn = prev.Version
		case !errors.Is(err, store.ErrNoAssignment):
			return err
		}
		if err := committer.Commit(asg, basedOn); err != nil {
			return err
		}

		fmt.Printf("Match %s (version %d)\n", asg.MatchID, asg.Version)
		fmt.Printf("Team A %.2f vs Team B %.2f (diff %.2f)\n", asg.RatingA, asg.RatingB, asg.Diff())
		for _, slot := range asg.Slots {
			locked := ""
			if slot.Locked {
				locked = " [locked]"
			}
			fmt.Printf("  %2d (%s) %s%s\n", slot.Slot, slot.Side, slot.PlayerName, locked)
		}
		if len(asg.Bench) > 0 {
			fmt.Printf("Bench: %s\n", strings.Join(asg.Bench, ", "))
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <result.json>",
	Short: "Ingest a match result from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read result file: %w", err)
		}
		var res match.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return fmt.Errorf("failed to parse result file: %w", err)
		}

		backfill, _ := cmd.Flags().GetBool("backfill")
		receipt, err := eng.ingestor.Ingest(&res, ingest.Options{Backfill: backfill})
		if err != nil {
			return err
		}
		if receipt.AlreadyIngested {
			fmt.Printf("Match %s was already ingested\n", receipt.MatchID)
			return nil
		}
		fmt.Printf("Ingested match %s into season %s\n", receipt.MatchID, receipt.SeasonID)
		for _, w := range receipt.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		for _, rec := range receipt.Delta.Bests {
			fmt.Printf("  new record: %s %d by %s\n", rec.Metric, rec.Value, rec.PlayerName)
		}
		return nil
	},
}

var retractCmd = &cobra.Command{
	Use:   "retract <matchID>",
	Short: "Retract an ingested result so a corrected one can be re-ingested",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		// The CLI ledger is per-invocation, so retract via the store and
		// rebuild directly.
		seasonID := findSeason(eng, args[0])
		if seasonID == "" {
			return fmt.Errorf("match %s not found in any season history", args[0])
		}
		if err := eng.persistence.RemoveMatchResult(args[0]); err != nil {
			return err
		}
		if err := eng.agg.Rebuild(seasonID); err != nil {
			return err
		}
		fmt.Printf("Retracted match %s, season %s rebuilt\n", args[0], seasonID)
		return nil
	},
}

var tableCmd = &cobra.Command{
	Use:   "table <seasonID>",
	Short: "Print a season's league table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		rows, err := eng.facade.LeagueTable(args[0])
		if err != nil {
			return err
		}
		printTable(rows)
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the all-time leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		printTable(eng.facade.AllTimeLeaderboard())
		return nil
	},
}

var legendsCmd = &cobra.Command{
	Use:   "legends",
	Short: "Print the current personal-best records",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		for _, rec := range eng.facade.Legends() {
			fmt.Printf("%-22s %3d  %s (was %d)\n", rec.Metric, rec.Value, rec.PlayerName, rec.PreviousValue)
		}
		return nil
	},
}

var raceCmd = &cobra.Command{
	Use:   "race <seasonID>",
	Short: "Print a season's cumulative points per match-day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		days, err := eng.facade.Race(args[0])
		if err != nil {
			return err
		}
		for _, day := range days {
			fmt.Printf("%s (%s):\n", day.PlayedAt.Format("2006-01-02"), day.MatchID)
			for id, pts := range day.Cumulative {
				fmt.Printf("  %-16s %d\n", id, pts)
			}
		}
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <seasonID>",
	Short: "Rebuild a season's aggregate from its match history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		if err := eng.agg.Rebuild(args[0]); err != nil {
			return err
		}
		fmt.Printf("Rebuilt season %s\n", args[0])
		return nil
	},
}

var closeSeasonsCmd = &cobra.Command{
	Use:   "close-seasons",
	Short: "Close every open season whose end date has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.teardown()

		closed := eng.agg.CloseDueSeasons(time.Now())
		for _, season := range closed {
			if err := eng.persistence.UpsertSeason(season); err != nil {
				return err
			}
			fmt.Printf("Closed season %s\n", season.ID)
		}
		if len(closed) == 0 {
			fmt.Println("No seasons due")
		}
		return nil
	},
}

func printTable(rows []stats.PlayerTotals) {
	fmt.Printf("%-4s %-20s %3s %3s %3s %3s %4s %4s %4s %4s\n", "#", "Player", "P", "W", "D", "L", "G", "A", "GD", "Pts")
	for i, row := range rows {
		fmt.Printf("%-4d %-20s %3d %3d %3d %3d %4d %4d %+4d %4d\n",
			i+1, row.PlayerName, row.Played, row.Wins, row.Draws, row.Losses, row.Goals, row.Assists, row.GoalDiff, row.Points)
	}
}

func findSeason(eng *engine, matchID string) string {
	for _, season := range eng.agg.Seasons() {
		results, err := eng.persistence.ResultsForSeason(season.ID)
		if err != nil {
			continue
		}
		for _, res := range results {
			if res.MatchID == matchID {
				return season.ID
			}
		}
	}
	return ""
}

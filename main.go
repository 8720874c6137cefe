package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"

	"github.com/clubhq/teamsheet/internal/config"
	"github.com/clubhq/teamsheet/internal/database"
	"github.com/clubhq/teamsheet/internal/ingest"
	"github.com/clubhq/teamsheet/internal/match"
	"github.com/clubhq/teamsheet/internal/metrics"
	slacknotifier "github.com/clubhq/teamsheet/internal/notifier/slack"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/clubhq/teamsheet/internal/pubsub"
	"github.com/clubhq/teamsheet/internal/stats"
	"github.com/clubhq/teamsheet/internal/store"
)

func main() {
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	playerStore := player.New(db)
	persistence := store.New(db)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	notifier := slacknotifier.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc, false)
	ps := pubsub.New(cfg.ProjectID)

	agg := stats.New(playerStore, persistence, persistence, notifier, ps, metricsSvc)
	if err := restoreState(agg, persistence); err != nil {
		log.Fatalf("Failed to restore aggregator state: %s", err)
	}
	ingestor := ingest.New(playerStore, agg, persistence, metricsSvc)

	// Season-close sweep: transitions seasons past their end date and
	// persists the new state.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %s", err)
	}
	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 15, 0))),
		gocron.NewTask(func() {
			for _, season := range agg.CloseDueSeasons(time.Now()) {
				if err := persistence.UpsertSeason(season); err != nil {
					log.Error("Failed to persist closed season", "error", err, "seasonID", season.ID)
				}
			}
		}),
	)
	if err != nil {
		log.Fatalf("Failed to schedule season sweep: %s", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Error("Scheduler shutdown failed", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	// Pub/Sub push subscription delivering completed match results.
	mux.HandleFunc("/pubsub/results", resultsPushHandler(ps, ingestor))

	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}

// resultsPushHandler accepts Pub/Sub push deliveries of completed match
// results and feeds them through the ingestor. Validation failures are
// acknowledged (non-retryable); everything else is returned as a 5xx so
// Pub/Sub redelivers.
func resultsPushHandler(ps pubsub.PubSubClient, ingestor *ingest.Ingestor) http.HandlerFunc {
	type pushEnvelope struct {
		Message struct {
			Data      []byte `json:"data"`
			MessageID string `json:"messageId"`
		} `json:"message"`
		Subscription string `json:"subscription"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var envelope pushEnvelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			log.Error("Failed to decode push envelope", "error", err)
			http.Error(w, "bad envelope", http.StatusBadRequest)
			return
		}

		var res match.Result
		if err := ps.ProcessMessage(envelope.Message.Data, &res); err != nil {
			log.Error("Failed to decode match result", "error", err, "messageID", envelope.Message.MessageID)
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		receipt, err := ingestor.Ingest(&res, ingest.Options{})
		if err != nil {
			var verr *match.ValidationError
			if errors.As(err, &verr) {
				log.Warn("Dropping invalid match result", "error", err, "matchID", res.MatchID)
				w.WriteHeader(http.StatusOK)
				return
			}
			log.Error("Failed to ingest match result", "error", err, "matchID", res.MatchID)
			http.Error(w, "ingest failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(receipt); err != nil {
			log.Error("Failed to write receipt", "error", err)
		}
	}
}

// restoreState rehydrates the in-memory aggregator from the persistence
// store: season definitions, personal bests, and each season's aggregate
// replayed from its match history.
func restoreState(agg *stats.Aggregator, persistence *store.Store) error {
	seasons, err := persistence.Seasons()
	if err != nil {
		return err
	}
	for _, season := range seasons {
		if err := agg.AddSeason(season); err != nil {
			return err
		}
		if err := agg.Rebuild(season.ID); err != nil {
			return err
		}
	}

	bests, err := persistence.PersonalBests()
	if err != nil {
		return err
	}
	agg.SeedBests(bests)

	log.Info("Restored aggregator state", "seasons", len(seasons), "personalBests", len(bests))
	return nil
}

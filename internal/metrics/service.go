package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		BalanceRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamsheet_balance_runs_total",
			Help: "The total number of balancing runs executed.",
		}),
		ResultsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamsheet_results_ingested_total",
			Help: "The total number of match results ingested.",
		}),
		PersonalBestsBroken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamsheet_personal_bests_broken_total",
			Help: "The total number of personal best records superseded.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamsheet_ingest_duration_seconds",
			Help:    "The duration of individual result ingestions.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamsheet_sink_failures_total",
			Help: "The total number of persistence sink calls that failed.",
		}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamsheet_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamsheet_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teamsheet_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.BalanceRuns,
		s.ResultsIngested,
		s.PersonalBestsBroken,
		s.IngestDuration,
		s.SinkFailures,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncBalanceRuns() {
	s.BalanceRuns.Inc()
}

func (s *Service) IncResultsIngested() {
	s.ResultsIngested.Inc()
}

func (s *Service) IncPersonalBestsBroken() {
	s.PersonalBestsBroken.Inc()
}

func (s *Service) ObserveIngestDuration(duration float64) {
	s.IngestDuration.Observe(duration)
}

func (s *Service) IncSinkFailures() {
	s.SinkFailures.Inc()
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}

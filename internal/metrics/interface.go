package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncBalanceRuns()
	IncResultsIngested()
	IncPersonalBestsBroken()
	ObserveIngestDuration(duration float64)
	IncSinkFailures()
	IncNotifSent()
	IncNotifFailed()
	SetStartupTime(duration float64)
}

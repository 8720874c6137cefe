package lineup

// Sink receives committed assignments for persistence. Failures are
// reported but never roll back the in-memory commit; the current process
// stays authoritative.
type Sink interface {
	CommitAssignment(a *Assignment) error
}

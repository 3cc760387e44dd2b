// Package registry implements the CMP registry lookup pipeline: the
// browser-driven lookup workflow, the detail-page extractor, the per-identifier
// retry controller and the run orchestrator.
package registry

import "time"

// Doctor is the record persisted for each successfully scraped identifier.
type Doctor struct {
	CMP         string
	Status      string
	Specialties []string
}

// LookupResult is the extractor output for one detail page.
type LookupResult struct {
	Status      string
	Specialties []string
}

// Outcome summarizes the processing of one identifier across all attempts.
type Outcome struct {
	CMP       string
	Attempts  int
	Succeeded bool
	Status    string
	Elapsed   time.Duration
}

// Summary accumulates run-level totals.
type Summary struct {
	Successes int
	Failures  int
	Elapsed   time.Duration
}

// Debug-capture tags identifying the failure point of an attempt.
const (
	TagHomeTimeout   = "home_timeout"
	TagMissingStatus = "missing_status"
	TagError         = "error"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Package metrics keeps running statistics about poll iterations.
package metrics

import (
	"sync"
	"time"
)

// Iteration describes one completed poll iteration
type Iteration struct {
	At           time.Time
	Duration     time.Duration
	Observations int
	Unresolved   int
	Lit          int
	Writes       int
	// Outcomes counts resolutions by outcome name.
	Outcomes map[string]int
}

// Stats accumulates iteration statistics. Safe for concurrent use.
type Stats struct {
	mu         sync.Mutex
	iterations int
	failures   int
	lastAt     time.Time
	failedAt   time.Time
	lastError  string

	durationMs tracked
	lit        tracked
	unresolved tracked
	writes     tracked
	outcomes   map[string]int
}

type tracked struct {
	state WelfordState
	last  float64
}

func (t *tracked) update(v float64) {
	t.state.Update(v)
	t.last = v
}

// Snapshot is a copy of the statistics at one instant
type Snapshot struct {
	Iterations      int            `json:"iterations"`
	Failures        int            `json:"failures"`
	LastIterationAt *time.Time     `json:"last_iteration_at,omitempty"`
	LastFailureAt   *time.Time     `json:"last_failure_at,omitempty"`
	LastError       string         `json:"last_error,omitempty"`
	DurationMs      Summary        `json:"duration_ms"`
	Lit             Summary        `json:"lit"`
	Unresolved      Summary        `json:"unresolved"`
	Writes          Summary        `json:"writes"`
	Outcomes        map[string]int `json:"outcomes"`
}

// NewStats creates empty statistics
func NewStats() *Stats {
	return &Stats{outcomes: make(map[string]int)}
}

// Record adds a successful iteration and clears the last error
func (s *Stats) Record(it Iteration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.iterations++
	s.lastAt = it.At
	s.lastError = ""
	s.durationMs.update(float64(it.Duration) / float64(time.Millisecond))
	s.lit.update(float64(it.Lit))
	s.unresolved.update(float64(it.Unresolved))
	s.writes.update(float64(it.Writes))
	for name, n := range it.Outcomes {
		s.outcomes[name] += n
	}
}

// RecordFailure counts an iteration that was skipped because of err
func (s *Stats) RecordFailure(at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	s.failedAt = at
	if err != nil {
		s.lastError = err.Error()
	}
}

// Snapshot returns a copy of the current statistics
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Iterations: s.iterations,
		Failures:   s.failures,
		LastError:  s.lastError,
		DurationMs: s.durationMs.state.summary(s.durationMs.last),
		Lit:        s.lit.state.summary(s.lit.last),
		Unresolved: s.unresolved.state.summary(s.unresolved.last),
		Writes:     s.writes.state.summary(s.writes.last),
		Outcomes:   make(map[string]int, len(s.outcomes)),
	}
	if !s.lastAt.IsZero() {
		at := s.lastAt
		snap.LastIterationAt = &at
	}
	if !s.failedAt.IsZero() {
		at := s.failedAt
		snap.LastFailureAt = &at
	}
	for k, v := range s.outcomes {
		snap.Outcomes[k] = v
	}
	return snap
}

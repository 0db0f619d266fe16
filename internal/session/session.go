// Package session holds the dashboard's dataset lifecycle as an explicit state
// machine. Exactly one dataset is live at a time; the rendering layer receives
// immutable snapshots, never the live state.
package session

import (
	"errors"
	"sync"
	"time"

	"casepulse/internal/analytics"
	"casepulse/internal/ingest"
)

// Phase is the dataset lifecycle state.
type Phase string

const (
	// PhaseIdle means no dataset has been loaded yet, or the last one was cleared.
	PhaseIdle Phase = "idle"
	// PhaseLoading means an ingestion run is in flight.
	PhaseLoading Phase = "loading"
	// PhaseReady means a dataset is loaded and its views are available.
	PhaseReady Phase = "ready"
	// PhaseError means the last ingestion run failed; views from any prior
	// dataset are discarded.
	PhaseError Phase = "error"
)

// ErrLoadInProgress is returned by BeginLoad while another load is in flight.
var ErrLoadInProgress = errors.New("a load is already in progress")

// Snapshot is a point-in-time copy of the session, safe to hand out.
type Snapshot struct {
	Phase     Phase             `json:"phase"`
	Source    string            `json:"source,omitempty"`
	Stats     ingest.Stats      `json:"stats"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
	Result    *analytics.Result `json:"result,omitempty"`
}

// Session is the mutex-guarded dataset state. The zero value is not usable;
// call New.
type Session struct {
	mu        sync.RWMutex
	phase     Phase
	source    string
	stats     ingest.Stats
	lastErr   string
	updatedAt time.Time
	result    analytics.Result
}

// New returns an idle session.
func New() *Session {
	return &Session{phase: PhaseIdle, updatedAt: time.Now()}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// BeginLoad moves the session into loading. Overlapping loads are rejected;
// starting from ready or error replaces the previous dataset outcome.
func (s *Session) BeginLoad(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseLoading {
		return ErrLoadInProgress
	}

	s.phase = PhaseLoading
	s.source = source
	s.lastErr = ""
	s.updatedAt = time.Now()
	return nil
}

// CompleteLoad records a successful ingestion and its derived views.
func (s *Session) CompleteLoad(result analytics.Result, stats ingest.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhaseReady
	s.result = result
	s.stats = stats
	s.lastErr = ""
	s.updatedAt = time.Now()
}

// FailLoad records a failed ingestion. Any previously loaded dataset is
// discarded; the dashboard renders the error until the next load or clear.
func (s *Session) FailLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhaseError
	s.result = analytics.EmptyResult()
	s.stats = ingest.Stats{}
	if err != nil {
		s.lastErr = err.Error()
	}
	s.updatedAt = time.Now()
}

// Clear drops the current dataset and returns to idle. Clearing during a load
// is a no-op so an in-flight run cannot lose its state slot.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseLoading {
		return
	}

	s.phase = PhaseIdle
	s.source = ""
	s.result = analytics.Result{}
	s.stats = ingest.Stats{}
	s.lastErr = ""
	s.updatedAt = time.Now()
}

// Result returns the current views and whether a dataset is loaded.
func (s *Session) Result() (analytics.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhaseReady {
		return analytics.Result{}, false
	}
	return s.result, true
}

// Snapshot copies the session state. The Result pointer is set only in the
// ready phase.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Phase:     s.phase,
		Source:    s.source,
		Stats:     s.stats,
		Error:     s.lastErr,
		UpdatedAt: s.updatedAt,
	}
	if s.phase == PhaseReady {
		result := s.result
		snap.Result = &result
	}
	return snap
}

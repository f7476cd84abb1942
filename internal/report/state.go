// Package report holds the current reconciliation result of a session.
package report

import (
	"sync"

	"github.com/sells-group/recon-cli/internal/model"
)

// Change describes what an Update did to the state.
type Change int

const (
	// ChangeNone means the outcome was a failure and the state is untouched.
	ChangeNone Change = iota
	// ChangeCleared means a successful but empty outcome cleared the state.
	ChangeCleared
	// ChangeReplaced means the state now holds the new result.
	ChangeReplaced
)

func (c Change) String() string {
	switch c {
	case ChangeCleared:
		return "cleared"
	case ChangeReplaced:
		return "replaced"
	default:
		return "none"
	}
}

// Rerender reports whether the change requires the report to be redrawn.
func (c Change) Rerender() bool {
	return c != ChangeNone
}

// State owns the single current result. Readers must not mutate what
// Current returns.
type State struct {
	mu      sync.RWMutex
	current *model.Result
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// Update applies a submission outcome.
func (s *State) Update(o model.Outcome) Change {
	if !o.OK() {
		return ChangeNone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := o.Result()
	if r.IsEmpty() {
		s.current = nil
		return ChangeCleared
	}
	s.current = r.Clone()
	return ChangeReplaced
}

// Current returns the current result, or nil.
func (s *State) Current() *model.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Clear drops the current result.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// HasExportable reports whether there are rows to export.
func (s *State) HasExportable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && len(s.current.Rows) > 0
}

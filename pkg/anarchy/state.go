// Package anarchy holds the process-wide anarchy toggle and the set of tools
// anarchy mode may apply to.
package anarchy

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ToolID identifies a host tool (object placement, net drawing, ...).
type ToolID string

// Built-in tool identifiers that are eligible by default.
const (
	ToolObject   ToolID = "object"
	ToolNet      ToolID = "net"
	ToolArea     ToolID = "area"
	ToolBulldoze ToolID = "bulldoze"
	ToolUpgrade  ToolID = "upgrade"
)

// ErrEmptyToolID is returned when a tool registration has no identifier.
var ErrEmptyToolID = errors.New("tool identifier is empty")

// State is the anarchy toggle plus the eligible-tool predicate.
// It is safe for concurrent use.
type State struct {
	enabled atomic.Bool

	mu       sync.RWMutex
	eligible map[ToolID]struct{}
}

// NewState creates a State with the given initial toggle and eligible tools.
func NewState(enabled bool, tools ...ToolID) *State {
	s := &State{eligible: make(map[ToolID]struct{}, len(tools))}
	s.enabled.Store(enabled)
	for _, t := range tools {
		if t = normalize(t); t != "" {
			s.eligible[t] = struct{}{}
		}
	}
	return s
}

// Enabled reports whether anarchy mode is on.
func (s *State) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled sets the toggle.
func (s *State) SetEnabled(on bool) {
	s.enabled.Store(on)
}

// Toggle flips the toggle and returns the new value.
func (s *State) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// RegisterTool marks a tool as anarchy-eligible. Registering twice is a no-op.
func (s *State) RegisterTool(id ToolID) error {
	id = normalize(id)
	if id == "" {
		return ErrEmptyToolID
	}
	s.mu.Lock()
	s.eligible[id] = struct{}{}
	s.mu.Unlock()
	return nil
}

// UnregisterTool removes a tool from the eligible set.
func (s *State) UnregisterTool(id ToolID) {
	s.mu.Lock()
	delete(s.eligible, normalize(id))
	s.mu.Unlock()
}

// IsEligible reports whether anarchy mode may apply to a tool.
func (s *State) IsEligible(id ToolID) bool {
	s.mu.RLock()
	_, ok := s.eligible[normalize(id)]
	s.mu.RUnlock()
	return ok
}

// Applies reports whether anarchy mode is on and applies to the active tool.
func (s *State) Applies(active ToolID) bool {
	return s.Enabled() && s.IsEligible(active)
}

// Tools returns the eligible tools sorted by identifier.
func (s *State) Tools() []ToolID {
	s.mu.RLock()
	out := make([]ToolID, 0, len(s.eligible))
	for id := range s.eligible {
		out = append(out, id)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalize(id ToolID) ToolID {
	return ToolID(strings.TrimSpace(string(id)))
}

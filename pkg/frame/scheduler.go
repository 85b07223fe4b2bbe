package frame

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"skyline-hq/anarchy/pkg/pipeline"
)

var (
	// ErrDuplicateName is returned when a system or pass name is registered
	// twice.
	ErrDuplicateName = errors.New("duplicate system or pass name")

	// ErrCycle is returned when the ordering constraints of a phase cannot be
	// satisfied.
	ErrCycle = errors.New("ordering cycle")

	// ErrInvalidSlot is returned for a registration with no name, no pass or
	// an unknown phase.
	ErrInvalidSlot = errors.New("invalid slot")
)

// node is one schedulable unit: a host system or a pipeline pass.
type node struct {
	reg  pipeline.Registration
	host bool
}

// DisabledPass records a pass left out of the schedule and why.
type DisabledPass struct {
	Name  string
	Phase pipeline.Phase
	Err   error
}

// step is one resolved entry of a Schedule.
type step struct {
	reg       pipeline.Registration
	host      bool
	mandatory bool
}

// Schedule is the resolved execution order of one frame.
type Schedule struct {
	steps    []step
	disabled []DisabledPass
}

// Order returns the names of the scheduled systems and passes in execution
// order.
func (s *Schedule) Order() []string {
	out := make([]string, 0, len(s.steps))
	for _, st := range s.steps {
		out = append(out, st.reg.Slot.Name)
	}
	return out
}

// Disabled returns the passes left out of the schedule.
func (s *Schedule) Disabled() []DisabledPass {
	out := make([]DisabledPass, len(s.disabled))
	copy(out, s.disabled)
	return out
}

// Scheduler collects host systems and pass registrations and resolves them
// into a Schedule.
//
// Ordering constraints are honored within a phase. A constraint naming a
// system or pass of another phase only has to exist; phases already run in
// order. A pass that names something unknown, or whose Ready method fails,
// is disabled and logged once, as is every pass that Requires it. Host
// systems are never disabled.
type Scheduler struct {
	mu     sync.Mutex
	nodes  []*node
	byName map[string]*node
	logger *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		byName: make(map[string]*node),
		logger: logger.With("component", "frame.scheduler"),
	}
}

// AddHostSystem registers a host-owned system. Its Pass runs in the schedule
// like any other step.
func (s *Scheduler) AddHostSystem(reg pipeline.Registration) error {
	return s.add(reg, true)
}

// Register adds one pass registration.
func (s *Scheduler) Register(reg pipeline.Registration) error {
	return s.add(reg, false)
}

// RegisterAll adds every registration, stopping at the first error.
func (s *Scheduler) RegisterAll(regs []pipeline.Registration) error {
	for _, reg := range regs {
		if err := s.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) add(reg pipeline.Registration, host bool) error {
	if reg.Slot.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSlot)
	}
	if reg.Pass == nil {
		return fmt.Errorf("%w: %s has no pass", ErrInvalidSlot, reg.Slot.Name)
	}
	if !reg.Slot.Phase.Valid() {
		return fmt.Errorf("%w: %s has unknown phase %v", ErrInvalidSlot, reg.Slot.Name, reg.Slot.Phase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[reg.Slot.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, reg.Slot.Name)
	}
	n := &node{reg: reg, host: host}
	s.nodes = append(s.nodes, n)
	s.byName[reg.Slot.Name] = n
	return nil
}

// Build resolves the registrations into a schedule.
func (s *Scheduler) Build() (*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched := &Schedule{}
	enabled := make(map[string]*node, len(s.nodes))

	for _, n := range s.nodes {
		if n.host {
			enabled[n.reg.Slot.Name] = n
			continue
		}
		if err := s.readiness(n); err != nil {
			sched.disabled = append(sched.disabled, DisabledPass{
				Name:  n.reg.Slot.Name,
				Phase: n.reg.Slot.Phase,
				Err:   err,
			})
			s.logger.Warn("pass disabled",
				"pass", n.reg.Slot.Name,
				"phase", n.reg.Slot.Phase.String(),
				"error", err,
			)
			continue
		}
		enabled[n.reg.Slot.Name] = n
	}
	s.dropUnpaired(sched, enabled)

	for _, phase := range pipeline.Phases() {
		var members []*node
		for _, n := range s.nodes {
			if _, ok := enabled[n.reg.Slot.Name]; ok && n.reg.Slot.Phase == phase {
				members = append(members, n)
			}
		}
		ordered, err := sortPhase(members)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", phase, err)
		}
		for _, n := range ordered {
			mandatory := false
			if m, ok := n.reg.Pass.(pipeline.Mandatory); ok {
				mandatory = m.Mandatory()
			}
			sched.steps = append(sched.steps, step{reg: n.reg, host: n.host, mandatory: mandatory})
		}
	}

	s.logger.Debug("schedule built",
		"steps", len(sched.steps),
		"disabled", len(sched.disabled),
	)
	return sched, nil
}

// dropUnpaired disables every pass whose required partner is not scheduled,
// repeating until no more passes drop out.
func (s *Scheduler) dropUnpaired(sched *Schedule, enabled map[string]*node) {
	causes := make(map[string]error, len(sched.disabled))
	for _, d := range sched.disabled {
		causes[d.Name] = d.Err
	}

	for changed := true; changed; {
		changed = false
		for _, n := range s.nodes {
			if n.host {
				continue
			}
			if _, ok := enabled[n.reg.Slot.Name]; !ok {
				continue
			}
			for _, req := range n.reg.Slot.Requires {
				if _, ok := enabled[req]; ok {
					continue
				}
				err := fmt.Errorf("requires %s: %w", req, causes[req])
				delete(enabled, n.reg.Slot.Name)
				causes[n.reg.Slot.Name] = err
				sched.disabled = append(sched.disabled, DisabledPass{
					Name:  n.reg.Slot.Name,
					Phase: n.reg.Slot.Phase,
					Err:   err,
				})
				s.logger.Warn("pass disabled",
					"pass", n.reg.Slot.Name,
					"phase", n.reg.Slot.Phase.String(),
					"error", err,
				)
				changed = true
				break
			}
		}
	}
}

// readiness reports why a pass cannot be scheduled.
func (s *Scheduler) readiness(n *node) error {
	if r, ok := n.reg.Pass.(pipeline.Readier); ok {
		if err := r.Ready(); err != nil {
			return err
		}
	}
	refs := append(append([]string(nil), n.reg.Slot.After...), n.reg.Slot.Before...)
	for _, ref := range append(refs, n.reg.Slot.Requires...) {
		if _, ok := s.byName[ref]; !ok {
			return fmt.Errorf("%w: %s", pipeline.ErrMissingHostSystem, ref)
		}
	}
	return nil
}

// sortPhase orders the members of one phase so every same-phase constraint
// holds. Ties keep registration order.
func sortPhase(members []*node) ([]*node, error) {
	inPhase := make(map[string]bool, len(members))
	for _, n := range members {
		inPhase[n.reg.Slot.Name] = true
	}

	edges := make(map[string][]string)
	indegree := make(map[string]int, len(members))
	addEdge := func(from, to string) {
		edges[from] = append(edges[from], to)
		indegree[to]++
	}

	for _, n := range members {
		name := n.reg.Slot.Name
		for _, a := range n.reg.Slot.After {
			if inPhase[a] {
				addEdge(a, name)
			}
		}
		for _, b := range n.reg.Slot.Before {
			if inPhase[b] {
				addEdge(name, b)
			}
		}
	}

	ordered := make([]*node, 0, len(members))
	done := make(map[string]bool, len(members))
	for len(ordered) < len(members) {
		var next *node
		for _, n := range members {
			if !done[n.reg.Slot.Name] && indegree[n.reg.Slot.Name] == 0 {
				next = n
				break
			}
		}
		if next == nil {
			var stuck []string
			for _, n := range members {
				if !done[n.reg.Slot.Name] {
					stuck = append(stuck, n.reg.Slot.Name)
				}
			}
			return nil, fmt.Errorf("%w between %s", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next.reg.Slot.Name] = true
		ordered = append(ordered, next)
		for _, to := range edges[next.reg.Slot.Name] {
			indegree[to]--
		}
	}
	return ordered, nil
}

package system

import (
	"context"
	"time"

	"syscheck/internal/status"
)

// Reporter is one prerequisite check as seen by the aggregator.
type Reporter interface {
	// Name is the stable identifier of the check.
	Name() string
	// Projection maps the check's internal phase onto the shared vocabulary.
	Projection() status.State
	// Detail exposes the check's session for display.
	Detail() any
}

// Toggleable is implemented by checks the user can start and stop. Disable
// must release any hardware the check holds and reset its session.
type Toggleable interface {
	Enable(ctx context.Context) error
	Disable() error
}

// CheckStatus is one row of a snapshot.
type CheckStatus struct {
	Name   string       `json:"name"`
	State  status.State `json:"state"`
	Icon   string       `json:"icon"`
	Detail any          `json:"detail,omitempty"`
}

// Snapshot is the aggregated view over all checks at one moment.
type Snapshot struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Checks      []CheckStatus `json:"checks"`
}

// Aggregator composes independent prerequisite checks. Checks share no
// state; the aggregator only reads their projections.
type Aggregator struct {
	checks []Reporter
}

// NewAggregator creates an aggregator over the given checks, in display
// order.
func NewAggregator(checks ...Reporter) *Aggregator {
	return &Aggregator{checks: checks}
}

// Checks returns the composed reporters in display order.
func (a *Aggregator) Checks() []Reporter {
	out := make([]Reporter, len(a.checks))
	copy(out, a.checks)
	return out
}

// Check looks a reporter up by name.
func (a *Aggregator) Check(name string) (Reporter, bool) {
	for _, c := range a.checks {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Snapshot collects the current projection and detail of every check.
func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{
		GeneratedAt: time.Now().UTC(),
		Checks:      make([]CheckStatus, 0, len(a.checks)),
	}
	for _, c := range a.checks {
		state := c.Projection()
		snap.Checks = append(snap.Checks, CheckStatus{
			Name:   c.Name(),
			State:  state,
			Icon:   state.Icon(),
			Detail: c.Detail(),
		})
	}
	return snap
}

// Satisfied reports whether every check currently projects success.
func (a *Aggregator) Satisfied() bool {
	for _, c := range a.checks {
		if c.Projection() != status.Success {
			return false
		}
	}
	return len(a.checks) > 0
}

package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"syscheck/internal/status"
)

// Provider supplies position fixes from the host environment.
type Provider interface {
	// Available reports whether the environment exposes positioning at all.
	Available() bool
	// CurrentPosition resolves a single fix. Failures should be returned as
	// *PositionError so they can be classified.
	CurrentPosition(ctx context.Context) (Position, error)
}

// PositionError is a classified provider failure.
type PositionError struct {
	Code   int
	Reason string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position request failed (code %d): %s", e.Code, e.Reason)
}

// CheckName identifies the geolocation prerequisite.
const CheckName = "geolocation"

const defaultTimeout = 20 * time.Second

// Check drives the geolocation prerequisite for one mount. A single position
// request is issued per mount; terminal phases stay until the check is
// disabled and enabled again.
type Check struct {
	provider    Provider
	checkpoints []Checkpoint
	timeout     time.Duration

	mu         sync.Mutex
	session    Session
	generation int
	inFlight   bool
	cancel     context.CancelFunc
}

// NewCheck creates a geolocation check against the given provider.
func NewCheck(provider Provider, checkpoints []Checkpoint, timeout time.Duration) *Check {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Check{
		provider:    provider,
		checkpoints: checkpoints,
		timeout:     timeout,
		session:     NewSession(),
	}
}

// Name implements system.Reporter.
func (c *Check) Name() string { return CheckName }

// Enable probes the environment and, if positioning is available, fires the
// single asynchronous position request. At most one request is outstanding
// at a time.
func (c *Check) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight || c.session.Status != StatusUnknown {
		return nil
	}

	c.session = Reduce(c.session, APIProbed{Available: c.provider.Available()})
	if c.session.Status == StatusNoBrowserAPI {
		log.Warn().Str("session", c.session.ID).Msg("geolocation capability missing")
		return nil
	}

	c.session = Reduce(c.session, RequestInitiated{})
	c.inFlight = true
	generation := c.generation

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel

	go func() {
		defer cancel()
		pos, err := c.provider.CurrentPosition(reqCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if generation != c.generation {
			// The mount that issued this request is gone; drop the result.
			log.Debug().Msg("discarding stale position result")
			return
		}
		c.inFlight = false
		if err != nil {
			code := -1
			if posErr, ok := err.(*PositionError); ok {
				code = posErr.Code
			}
			c.session = Reduce(c.session, PositionFailed{Code: code})
			log.Warn().Err(err).Str("phase", string(c.session.Status)).Msg("position request failed")
			return
		}
		c.session = Reduce(c.session, PositionResolved{Position: pos})
		log.Info().
			Str("session", c.session.ID).
			Float64("accuracy_m", pos.AccuracyMeters).
			Msg("position acquired")
	}()
	return nil
}

// Disable cancels any in-flight request and resets the session so the next
// Enable starts from a clean UNKNOWN phase.
func (c *Check) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.inFlight = false
	c.session = NewSession()
	return nil
}

// Snapshot returns a copy of the current session. In the succeeded phase the
// copy carries the distance table to every configured checkpoint.
func (c *Check) Snapshot() Session {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s.Status == StatusRequestSucceeded && s.Position != nil {
		s.Distances = DistancesFrom(s.Position.Coordinate, c.checkpoints)
	}
	return s
}

// Projection maps the session phase onto the shared prerequisite vocabulary.
func (c *Check) Projection() status.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.Status {
	case StatusUnknown, StatusAPIAvailable, StatusRequestInitiated:
		return status.Pending
	case StatusRequestSucceeded:
		return status.Success
	default:
		return status.Failure
	}
}

// Detail implements system.Reporter.
func (c *Check) Detail() any { return c.Snapshot() }

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"syscheck/internal/status"
)

// Status is the phase of one backend liveness session.
type Status string

const (
	StatusUnknown  Status = "UNKNOWN"
	StatusChecking Status = "CHECKING"
	StatusOnline   Status = "ONLINE"
	StatusFailed   Status = "FAILED"
)

var statusDescriptions = map[Status]string{
	StatusUnknown:  "We do not know if the backend is alive or not",
	StatusChecking: "We are checking if you are connected",
	StatusOnline:   "The system is online",
	StatusFailed:   "You are not connected to the system",
}

// Describe returns the operator-facing text for a status.
func (s Status) Describe() string {
	return statusDescriptions[s]
}

// Session is the state of one backend check mount.
type Session struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	LatencyMS int64     `json:"latency_ms,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// NewSession returns a fresh session in the UNKNOWN phase.
func NewSession() Session {
	return Session{
		ID:      uuid.NewString(),
		Status:  StatusUnknown,
		Message: StatusUnknown.Describe(),
	}
}

// CheckName identifies the backend reachability prerequisite.
const CheckName = "backend"

const defaultTimeout = 10 * time.Second

// Check probes the backend's liveness endpoint exactly once per mount.
// ONLINE requires the probe to both transport-succeed and decode as a JSON
// object carrying a message field; every other outcome folds into FAILED.
type Check struct {
	baseURL string
	client  *http.Client
	timeout time.Duration

	mu         sync.Mutex
	session    Session
	generation int
	inFlight   bool
	cancel     context.CancelFunc
}

// NewCheck creates a backend check probing baseURL.
func NewCheck(baseURL string, client *http.Client, timeout time.Duration) *Check {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Check{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
		session: NewSession(),
	}
}

// Name implements system.Reporter.
func (c *Check) Name() string { return CheckName }

// Enable fires the single liveness probe for this mount.
func (c *Check) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight || c.session.Status != StatusUnknown {
		return nil
	}
	c.setStatusLocked(StatusChecking)
	c.inFlight = true
	generation := c.generation

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel

	go func() {
		defer cancel()
		started := time.Now()
		err := c.probe(probeCtx)
		latency := time.Since(started).Milliseconds()

		c.mu.Lock()
		defer c.mu.Unlock()
		if generation != c.generation {
			return
		}
		c.inFlight = false
		c.session.LatencyMS = latency
		c.session.CheckedAt = time.Now().UTC()
		if err != nil {
			c.setStatusLocked(StatusFailed)
			log.Warn().Err(err).Str("base_url", c.baseURL).Msg("backend probe failed")
			return
		}
		c.setStatusLocked(StatusOnline)
		log.Info().Int64("latency_ms", latency).Msg("backend online")
	}()
	return nil
}

// Disable cancels an in-flight probe and resets the session.
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

// Snapshot returns a copy of the current session.
func (c *Check) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Projection maps the session onto the shared prerequisite vocabulary.
func (c *Check) Projection() status.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.Status {
	case StatusOnline:
		return status.Success
	case StatusFailed:
		return status.Failure
	default:
		return status.Pending
	}
}

// Detail implements system.Reporter.
func (c *Check) Detail() any { return c.Snapshot() }

func (c *Check) setStatusLocked(next Status) {
	c.session.Status = next
	c.session.Message = next.Describe()
}

func (c *Check) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ping", nil)
	if err != nil {
		return pkgerrors.Wrap(err, "build ping request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(err, "ping request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return pkgerrors.Wrap(err, "decode ping response")
	}
	if _, ok := payload["message"]; !ok {
		return pkgerrors.New("ping response has no message field")
	}
	return nil
}

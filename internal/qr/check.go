package qr

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"syscheck/internal/status"
)

// CheckName identifies the QR scanning prerequisite.
const CheckName = "qr"

// DefaultScanInterval is how often a frame is pulled and decoded.
const DefaultScanInterval = 500 * time.Millisecond

// OpenSource acquires a fresh frame source, typically the camera stream.
// The scanner opens one per enable and closes it on disable.
type OpenSource func(ctx context.Context) (FrameSource, error)

// Check drives the QR prerequisite: a continuous decode loop over video
// frames. Frame-level decode errors surface in the session but never stop
// the loop.
type Check struct {
	open     OpenSource
	decoder  Decoder
	interval time.Duration

	mu      sync.Mutex
	session Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCheck creates a QR check that scans frames from open with decoder.
func NewCheck(open OpenSource, decoder Decoder, interval time.Duration) *Check {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Check{
		open:     open,
		decoder:  decoder,
		interval: interval,
		session:  NewSession(),
	}
}

// Name implements system.Reporter.
func (c *Check) Name() string { return CheckName }

// Enable opens the frame source and starts the decode loop.
func (c *Check) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Enabled {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	source, err := c.open(loopCtx)
	if err != nil {
		cancel()
		c.session = Reduce(c.session, DecodeFailed{Reason: err.Error()})
		return pkgerrors.Wrap(err, "open frame source")
	}

	c.session = Reduce(c.session, ScannerStarted{})
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.scanLoop(loopCtx, source, c.done)
	log.Info().Str("session", c.session.ID).Dur("interval", c.interval).Msg("qr scanner started")
	return nil
}

// Disable stops the decode loop, releases the stream and resets the session
// so the next Enable starts fresh.
func (c *Check) Disable() error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.session = NewSession()
	c.mu.Unlock()
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
	return c.session.State
}

// Detail implements system.Reporter.
func (c *Check) Detail() any { return c.Snapshot() }

func (c *Check) scanLoop(ctx context.Context, source FrameSource, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := source.Close(); err != nil {
			log.Warn().Err(err).Msg("closing frame source")
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scanOnce(ctx, source)
		}
	}
}

func (c *Check) scanOnce(ctx context.Context, source FrameSource) {
	frame, err := source.NextFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.apply(DecodeFailed{Reason: err.Error()})
		return
	}

	payload, err := c.decoder.Decode(frame)
	switch {
	case pkgerrors.Is(err, ErrNoCode):
		// Expected for most frames; keep scanning quietly.
	case err != nil:
		c.apply(DecodeFailed{Reason: err.Error()})
		log.Debug().Err(err).Msg("frame decode failed")
	case payload != "":
		c.apply(CodeDecoded{Payload: payload})
		log.Info().Str("payload", payload).Msg("qr code decoded")
	}
}

func (c *Check) apply(ev Event) {
	c.mu.Lock()
	c.session = Reduce(c.session, ev)
	c.mu.Unlock()
}

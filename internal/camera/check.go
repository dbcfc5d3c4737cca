package camera

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"syscheck/internal/status"
)

// Constraints describe the stream requested from a device.
type Constraints struct {
	DeviceID string
	Width    int
	Height   int
}

// Stream is a live video stream granted by a device.
type Stream interface {
	// Settings reports the negotiated resolution, which may legitimately
	// differ from the requested one.
	Settings() Resolution
	// Capture reads a single still frame at the given resolution.
	Capture(ctx context.Context, res Resolution) ([]byte, error)
	Close() error
}

// DeviceProvider exposes the host's media devices.
type DeviceProvider interface {
	EnumerateDevices(ctx context.Context) ([]DeviceDescriptor, error)
	OpenStream(ctx context.Context, c Constraints) (Stream, error)
}

// StreamError is a classified stream acquisition failure. Name mirrors the
// DOMException-style identifier reported by the device layer, e.g.
// "NotAllowedError" or "OverconstrainedError".
type StreamError struct {
	Name   string
	Reason string
}

func (e *StreamError) Error() string {
	return e.Name + ": " + e.Reason
}

func errorName(err error) string {
	var streamErr *StreamError
	if pkgerrors.As(err, &streamErr) {
		return streamErr.Name
	}
	return "UnknownError"
}

// CheckName identifies the camera prerequisite.
const CheckName = "camera"

const defaultTimeout = 15 * time.Second

// Check drives the camera prerequisite for one mount: enumeration, device
// selection, constraint negotiation and still capture. The stream handle is
// exclusively owned by the check and released on disable.
type Check struct {
	provider DeviceProvider
	desired  Resolution
	timeout  time.Duration

	mu         sync.Mutex
	session    Session
	stream     Stream
	generation int
	streamGen  int
	cancel     context.CancelFunc
}

// NewCheck creates a camera check against the given provider.
func NewCheck(provider DeviceProvider, desired Resolution, timeout time.Duration) *Check {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Check{
		provider: provider,
		desired:  desired,
		timeout:  timeout,
		session:  NewSession(desired),
	}
}

// Name implements system.Reporter.
func (c *Check) Name() string { return CheckName }

// Enable starts device enumeration. The first video-input device found is
// auto-selected and its stream opened.
func (c *Check) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Enabled {
		return nil
	}
	c.session = Reduce(c.session, Enabled{})
	generation := c.generation

	enumCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel

	go func() {
		defer cancel()
		devices, err := c.provider.EnumerateDevices(enumCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if generation != c.generation {
			return
		}
		if err != nil {
			c.session = Reduce(c.session, StreamFailed{Name: errorName(err)})
			log.Warn().Err(err).Msg("device enumeration failed")
			return
		}
		c.session = Reduce(c.session, DevicesLoaded{Devices: devices})
		log.Info().Int("devices", len(c.session.Devices)).Msg("camera list loaded")

		selected := ""
		if len(c.session.Devices) > 0 {
			selected = c.session.Devices[0].DeviceID
		}
		c.session = Reduce(c.session, DeviceSelected{DeviceID: selected})
		if c.session.SelectedDeviceID != "" {
			c.startStreamLocked(ctx)
		}
	}()
	return nil
}

// SelectDevice switches to another enumerated device and restarts the
// stream. Selecting an id outside the enumerated list clears the selection.
func (c *Check) SelectDevice(ctx context.Context, deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Enabled {
		return pkgerrors.New("camera check is not enabled")
	}
	c.session = Reduce(c.session, DeviceSelected{DeviceID: deviceID})
	if c.session.SelectedDeviceID == "" {
		c.closeStreamLocked()
		return nil
	}
	c.startStreamLocked(ctx)
	return nil
}

// SetResolution records a new desired resolution and, if a device is
// selected, renegotiates the stream against it.
func (c *Check) SetResolution(ctx context.Context, desired Resolution) error {
	if desired.Width <= 0 || desired.Height <= 0 {
		return pkgerrors.Errorf("invalid resolution %dx%d", desired.Width, desired.Height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = Reduce(c.session, ResolutionChanged{Desired: desired})
	if c.session.Enabled && c.session.SelectedDeviceID != "" {
		c.startStreamLocked(ctx)
	}
	return nil
}

// Capture reads one still frame from the live stream at the negotiated
// resolution. A failed capture leaves any previous image in place.
func (c *Check) Capture(ctx context.Context) error {
	c.mu.Lock()
	stream := c.stream
	actual := c.session.Actual
	c.mu.Unlock()

	if stream == nil {
		c.apply(CaptureFailed{})
		return pkgerrors.New("no live stream to capture from")
	}

	captureCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	image, err := stream.Capture(captureCtx, actual)
	if err != nil {
		c.apply(CaptureFailed{})
		return pkgerrors.Wrap(err, "capture frame")
	}
	if len(image) == 0 {
		c.apply(CaptureFailed{})
		return pkgerrors.New("no frame available")
	}
	c.apply(FrameCaptured{Image: image})
	log.Info().Int("bytes", len(image)).Str("resolution", actual.String()).Msg("photo captured")
	return nil
}

// Disable releases the camera and resets the session so the next Enable
// starts from a clean phase with a fresh id.
func (c *Check) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.closeStreamLocked()
	c.session = NewSession(c.desired)
	return nil
}

// Snapshot returns a copy of the current session. The device slice is copied
// so callers cannot mutate check state.
func (c *Check) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if len(s.Devices) > 0 {
		devices := make([]DeviceDescriptor, len(s.Devices))
		copy(devices, s.Devices)
		s.Devices = devices
	}
	return s
}

// Preview returns the aspect-ratio-preserving preview dimensions for the
// current desired resolution.
func (c *Check) Preview() (width, height float64) {
	c.mu.Lock()
	desired := c.session.Desired
	c.mu.Unlock()
	return PreviewSize(desired)
}

// Projection maps the session onto the shared prerequisite vocabulary.
// A captured photo means the prerequisite is met, whatever phase the device
// machinery is in.
func (c *Check) Projection() status.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Projection(c.session)
}

// Projection is the pure composite mapping from session to prerequisite
// state.
func Projection(s Session) status.State {
	if s.CapturedBytes > 0 {
		return status.Success
	}
	switch s.Status {
	case StatusDeviceListLoaded, StatusDeviceStarted, StatusNoDeviceSelected:
		return status.UserInteractionRequired
	case StatusError:
		return status.Failure
	default:
		return status.Pending
	}
}

// Detail implements system.Reporter.
func (c *Check) Detail() any { return c.Snapshot() }

func (c *Check) apply(ev Event) {
	c.mu.Lock()
	c.session = Reduce(c.session, ev)
	c.mu.Unlock()
}

// startStreamLocked opens the stream for the selected device in the
// background. Callers must hold c.mu.
func (c *Check) startStreamLocked(ctx context.Context) {
	c.closeStreamLocked()
	generation := c.generation
	c.streamGen++
	streamGen := c.streamGen
	constraints := Constraints{
		DeviceID: c.session.SelectedDeviceID,
		Width:    c.session.Desired.Width,
		Height:   c.session.Desired.Height,
	}

	openCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel

	go func() {
		defer cancel()
		stream, err := c.provider.OpenStream(openCtx, constraints)

		c.mu.Lock()
		defer c.mu.Unlock()
		if generation != c.generation || streamGen != c.streamGen {
			// A newer mount or a newer open superseded this one.
			if stream != nil {
				_ = stream.Close()
			}
			return
		}
		if err != nil {
			c.session = Reduce(c.session, StreamFailed{Name: errorName(err)})
			log.Warn().Err(err).Str("device", constraints.DeviceID).Msg("stream acquisition failed")
			return
		}
		c.stream = stream
		c.session = Reduce(c.session, StreamStarted{Actual: stream.Settings()})
		log.Info().
			Str("device", constraints.DeviceID).
			Str("requested", c.session.Desired.String()).
			Str("granted", c.session.Actual.String()).
			Msg("camera started")
	}()
}

// closeStreamLocked releases the camera hardware. Callers must hold c.mu.
func (c *Check) closeStreamLocked() {
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
}

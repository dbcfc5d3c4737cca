// Package sim provides deterministic, in-memory implementations of the
// hardware-facing provider interfaces. They back the one-shot `check`
// command on headless machines and give tests something scriptable to
// drive the check runners with.
package sim

import (
	"bytes"
	"context"
	"sync"
	"time"

	"syscheck/internal/camera"
	"syscheck/internal/geo"
	"syscheck/internal/qr"
)

// PositionProvider resolves a scripted position fix.
type PositionProvider struct {
	Supported bool
	Position  geo.Position
	Err       error
	Delay     time.Duration
}

// DefaultPositionProvider reports a fix at Sergels torg after a short delay.
func DefaultPositionProvider() *PositionProvider {
	return &PositionProvider{
		Supported: true,
		Position: geo.Position{
			Coordinate:     geo.Coordinate{Latitude: 59.332085, Longitude: 18.064205},
			AccuracyMeters: 25,
		},
		Delay: 50 * time.Millisecond,
	}
}

// Available implements geo.Provider.
func (p *PositionProvider) Available() bool { return p.Supported }

// CurrentPosition implements geo.Provider.
func (p *PositionProvider) CurrentPosition(ctx context.Context) (geo.Position, error) {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return geo.Position{}, &geo.PositionError{Code: 3, Reason: "request timed out"}
		}
	}
	if p.Err != nil {
		return geo.Position{}, p.Err
	}
	return p.Position, nil
}

// maxSimResolution caps what the simulated devices grant, so requests above
// it exercise the desired-vs-actual negotiation path.
var maxSimResolution = camera.Resolution{Width: 1280, Height: 720}

// DeviceProvider serves canned camera devices and streams.
type DeviceProvider struct {
	Devices []camera.DeviceDescriptor
	EnumErr error
	OpenErr error
}

// DefaultDeviceProvider lists two simulated cameras plus a microphone that
// enumeration must filter out.
func DefaultDeviceProvider() *DeviceProvider {
	return &DeviceProvider{
		Devices: []camera.DeviceDescriptor{
			{DeviceID: "sim-cam-0", Label: "Simulated Front Camera", Kind: camera.KindVideoInput},
			{DeviceID: "sim-cam-1", Label: "Simulated Back Camera", Kind: camera.KindVideoInput},
			{DeviceID: "sim-mic-0", Label: "Simulated Microphone", Kind: "audioinput"},
		},
	}
}

// EnumerateDevices implements camera.DeviceProvider.
func (p *DeviceProvider) EnumerateDevices(_ context.Context) ([]camera.DeviceDescriptor, error) {
	if p.EnumErr != nil {
		return nil, p.EnumErr
	}
	out := make([]camera.DeviceDescriptor, len(p.Devices))
	copy(out, p.Devices)
	return out, nil
}

// OpenStream implements camera.DeviceProvider. The granted resolution is
// the requested one clamped to the simulated sensor maximum.
func (p *DeviceProvider) OpenStream(_ context.Context, c camera.Constraints) (camera.Stream, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	granted := camera.Resolution{Width: c.Width, Height: c.Height}
	if granted.Width > maxSimResolution.Width {
		granted.Width = maxSimResolution.Width
	}
	if granted.Height > maxSimResolution.Height {
		granted.Height = maxSimResolution.Height
	}
	return &stream{granted: granted}, nil
}

type stream struct {
	granted camera.Resolution

	mu     sync.Mutex
	closed bool
	frames int
}

// jpegHeader makes simulated frames look like the real thing to consumers
// that sniff magic bytes.
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0}

func (s *stream) Settings() camera.Resolution { return s.granted }

func (s *stream) Capture(_ context.Context, res camera.Resolution) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &camera.StreamError{Name: "InvalidStateError", Reason: "stream is closed"}
	}
	s.frames++
	if res.Width <= 0 || res.Height <= 0 {
		res = s.granted
	}
	// Payload size loosely tracks the frame area.
	size := res.Width * res.Height / 256
	if size < 64 {
		size = 64
	}
	frame := make([]byte, 0, len(jpegHeader)+size)
	frame = append(frame, jpegHeader...)
	frame = append(frame, bytes.Repeat([]byte{byte(s.frames)}, size)...)
	return frame, nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FrameSource adapts a simulated camera stream into the scanner's frame
// feed.
type FrameSource struct {
	stream camera.Stream
}

// OpenFrameSource opens a simulated stream for the QR scanner.
func OpenFrameSource(provider *DeviceProvider) qr.OpenSource {
	return func(ctx context.Context) (qr.FrameSource, error) {
		s, err := provider.OpenStream(ctx, camera.Constraints{
			DeviceID: "sim-cam-0",
			Width:    maxSimResolution.Width,
			Height:   maxSimResolution.Height,
		})
		if err != nil {
			return nil, err
		}
		return &FrameSource{stream: s}, nil
	}
}

// NextFrame implements qr.FrameSource.
func (f *FrameSource) NextFrame(ctx context.Context) ([]byte, error) {
	return f.stream.Capture(ctx, camera.Resolution{})
}

// Close implements qr.FrameSource.
func (f *FrameSource) Close() error { return f.stream.Close() }

// Decoder yields a scripted payload once enough frames have been seen.
type Decoder struct {
	Payload     string
	AfterFrames int

	mu    sync.Mutex
	seen  int
	fired bool
}

// Decode implements qr.Decoder.
func (d *Decoder) Decode(_ []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen++
	if d.fired || d.seen <= d.AfterFrames {
		return "", qr.ErrNoCode
	}
	d.fired = true
	return d.Payload, nil
}

package qr

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"syscheck/internal/status"
)

// ErrNoCode reports a frame that holds no decodable code. The scan loop
// treats it as silence rather than failure.
var ErrNoCode = errors.New("qr: no code in frame")

// FrameSource yields video frames for decoding. It is exclusively owned by
// the scanner that opened it.
type FrameSource interface {
	NextFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// Decoder extracts a payload from a single frame. Implementations return
// ErrNoCode for frames without a code.
type Decoder interface {
	Decode(frame []byte) (string, error)
}

// Session is the state of one scanner mount.
type Session struct {
	ID         string       `json:"id"`
	Enabled    bool         `json:"enabled"`
	State      status.State `json:"state"`
	LastResult string       `json:"last_result"`
	LastError  string       `json:"last_error,omitempty"`
}

// NewSession returns a fresh disabled session.
func NewSession() Session {
	return Session{
		ID:         uuid.NewString(),
		State:      status.UserInteractionRequired,
		LastResult: "Nothing yet",
	}
}

// Event advances a session.
type Event interface{ isEvent() }

// ScannerStarted marks the scan loop coming up over a live stream.
type ScannerStarted struct{}

// CodeDecoded delivers a successfully decoded payload.
type CodeDecoded struct{ Payload string }

// DecodeFailed records a frame-level decode error. The loop keeps running.
type DecodeFailed struct{ Reason string }

func (ScannerStarted) isEvent() {}
func (CodeDecoded) isEvent()    {}
func (DecodeFailed) isEvent()   {}

// Reduce applies one event to a session and returns the next session.
func Reduce(s Session, ev Event) Session {
	switch e := ev.(type) {
	case ScannerStarted:
		s.Enabled = true
		s.State = status.UserInteractionRequired
	case CodeDecoded:
		if e.Payload == "" {
			return s
		}
		s.LastResult = e.Payload
		s.LastError = ""
		s.State = status.Success
	case DecodeFailed:
		s.LastResult = e.Reason
		s.LastError = e.Reason
		s.State = status.Failure
	}
	return s
}

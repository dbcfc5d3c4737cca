package geo

import (
	"github.com/google/uuid"
)

// Status is the phase of one geolocation session.
type Status string

const (
	StatusUnknown          Status = "UNKNOWN"
	StatusNoBrowserAPI     Status = "NO_BROWSER_API"
	StatusNoUserApproval   Status = "NO_USER_APPROVAL"
	StatusNoPosition       Status = "NO_POSITION"
	StatusNoResponse       Status = "NO_RESPONSE"
	StatusAPIAvailable     Status = "BROWSER_API_AVAILABLE"
	StatusRequestInitiated Status = "LOCATION_REQUEST_INITIATED"
	StatusRequestSucceeded Status = "LOCATION_REQUEST_SUCCEEDED"
	StatusRequestFailed    Status = "LOCATION_REQUEST_FAILED"
)

// Terminal reports whether the phase can no longer change within this mount.
// Failure phases are sticky; the only way back is a fresh session.
func (s Status) Terminal() bool {
	switch s {
	case StatusNoBrowserAPI, StatusNoUserApproval, StatusNoPosition,
		StatusNoResponse, StatusRequestSucceeded, StatusRequestFailed:
		return true
	}
	return false
}

var statusMessages = map[Status]string{
	StatusUnknown:          "We do not know if we can figure out your location.",
	StatusNoBrowserAPI:     "We will not be able to figure out your location. Your browser does not support providing us with your GPS coordinates.",
	StatusNoUserApproval:   "You denied our request to get your location, or your GPS is not turned on.",
	StatusNoPosition:       "We could not lock onto your location. Maybe you are moving around? Maybe the reception is bad where you are at the moment?",
	StatusNoResponse:       "We did not get your position because the request timed out.",
	StatusAPIAvailable:     "Your device is figuring out your location.",
	StatusRequestInitiated: "Your device is figuring out your location.",
	StatusRequestSucceeded: "We have received your location.",
	StatusRequestFailed:    "For some reason, we could not find your location.",
}

// Message returns the user-facing explanation for a phase. Raw error codes
// never reach the user.
func (s Status) Message() string {
	return statusMessages[s]
}

// Position is a resolved geographic fix.
type Position struct {
	Coordinate     `yaml:",inline"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// Session is the state of one geolocation check mount. Position is populated
// only in the LOCATION_REQUEST_SUCCEEDED phase.
type Session struct {
	ID        string               `json:"id"`
	Status    Status               `json:"status"`
	Message   string               `json:"message"`
	Position  *Position            `json:"position,omitempty"`
	Distances []CheckpointDistance `json:"distances,omitempty"`
}

// NewSession returns a fresh session in the UNKNOWN phase.
func NewSession() Session {
	return Session{
		ID:      uuid.NewString(),
		Status:  StatusUnknown,
		Message: StatusUnknown.Message(),
	}
}

// Event advances a session. Events are applied strictly in arrival order.
type Event interface{ isEvent() }

// APIProbed reports whether the environment exposes a positioning capability.
type APIProbed struct{ Available bool }

// RequestInitiated marks the single outbound position request.
type RequestInitiated struct{}

// PositionResolved delivers a successful fix.
type PositionResolved struct{ Position Position }

// PositionFailed delivers a numeric failure code from the provider.
type PositionFailed struct{ Code int }

func (APIProbed) isEvent()        {}
func (RequestInitiated) isEvent() {}
func (PositionResolved) isEvent() {}
func (PositionFailed) isEvent()   {}

// ClassifyErrorCode maps a provider error code onto a failure phase.
// Codes follow the W3C geolocation convention: 1 permission denied,
// 2 position unavailable, 3 timeout.
func ClassifyErrorCode(code int) Status {
	switch code {
	case 1:
		return StatusNoUserApproval
	case 2:
		return StatusNoPosition
	case 3:
		return StatusNoResponse
	default:
		return StatusRequestFailed
	}
}

// Reduce applies one event to a session and returns the next session.
// It is pure: no I/O, no clock. Events arriving after a terminal phase
// are ignored.
func Reduce(s Session, ev Event) Session {
	if s.Status.Terminal() {
		return s
	}
	switch e := ev.(type) {
	case APIProbed:
		if s.Status != StatusUnknown {
			return s
		}
		if e.Available {
			return s.withStatus(StatusAPIAvailable)
		}
		return s.withStatus(StatusNoBrowserAPI)
	case RequestInitiated:
		if s.Status != StatusAPIAvailable {
			return s
		}
		return s.withStatus(StatusRequestInitiated)
	case PositionResolved:
		if s.Status != StatusRequestInitiated {
			return s
		}
		next := s.withStatus(StatusRequestSucceeded)
		pos := e.Position
		next.Position = &pos
		return next
	case PositionFailed:
		if s.Status != StatusRequestInitiated {
			return s
		}
		return s.withStatus(ClassifyErrorCode(e.Code))
	default:
		return s
	}
}

func (s Session) withStatus(next Status) Session {
	s.Status = next
	s.Message = next.Message()
	return s
}

package camera

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the phase of one camera session.
type Status string

const (
	StatusUnknown          Status = "UNKNOWN"
	StatusLoadingDevices   Status = "LOADING_DEVICE_LIST"
	StatusDeviceListLoaded Status = "DEVICE_LIST_LOADED"
	StatusError            Status = "ERROR"
	StatusStartingDevice   Status = "STARTING_DEVICE"
	StatusDeviceStarted    Status = "DEVICE_STARTED"
	StatusResizingVideo    Status = "RESIZING_VIDEO"
	StatusNoDeviceSelected Status = "NO_DEVICE_SELECTED"
)

var statusDescriptions = map[Status]string{
	StatusUnknown:          "Status of camera is unknown",
	StatusLoadingDevices:   "Loading list of cameras",
	StatusDeviceListLoaded: "Camera list loaded",
	StatusError:            "Error",
	StatusStartingDevice:   "Starting camera",
	StatusDeviceStarted:    "Camera started",
	StatusResizingVideo:    "Changing camera resolution",
	StatusNoDeviceSelected: "No camera selected",
}

// Describe returns the operator-facing text for a phase.
func (s Status) Describe() string {
	return statusDescriptions[s]
}

// KindVideoInput is the only device kind the check cares about. Devices of
// any other kind are dropped at enumeration time.
const KindVideoInput = "videoinput"

// DeviceDescriptor identifies one media input device. Label may be empty
// until the user has granted camera permission.
type DeviceDescriptor struct {
	DeviceID string `json:"device_id"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
}

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Session is the state of one camera check mount. Actual is populated only
// after a stream has reported its negotiated settings and may differ from
// Desired. CapturedImage survives later capture failures.
type Session struct {
	ID               string             `json:"id"`
	Enabled          bool               `json:"enabled"`
	Status           Status             `json:"status"`
	Devices          []DeviceDescriptor `json:"devices"`
	SelectedDeviceID string             `json:"selected_device_id,omitempty"`
	Desired          Resolution         `json:"desired_resolution"`
	Actual           Resolution         `json:"actual_resolution"`
	CapturedImage    []byte             `json:"-"`
	CapturedBytes    int                `json:"captured_bytes"`
	Message          string             `json:"message,omitempty"`
}

// NewSession returns a fresh disabled session with the given desired
// resolution.
func NewSession(desired Resolution) Session {
	return Session{
		ID:      uuid.NewString(),
		Status:  StatusUnknown,
		Desired: desired,
		Message: StatusUnknown.Describe(),
	}
}

// Event advances a session. Events are applied strictly in arrival order.
type Event interface{ isEvent() }

// Enabled flips the check on and starts device enumeration.
type Enabled struct{}

// DevicesLoaded delivers the raw enumeration result.
type DevicesLoaded struct{ Devices []DeviceDescriptor }

// DeviceSelected picks a device by id, either auto-selection after
// enumeration or an explicit user choice. An empty id means no device.
type DeviceSelected struct{ DeviceID string }

// StreamStarted reports the negotiated settings of a live stream.
type StreamStarted struct{ Actual Resolution }

// StreamFailed reports a stream acquisition failure by error name.
type StreamFailed struct{ Name string }

// ResolutionChanged records a new desired resolution.
type ResolutionChanged struct{ Desired Resolution }

// FrameCaptured stores a captured still frame.
type FrameCaptured struct{ Image []byte }

// CaptureFailed marks a capture attempt that yielded no frame.
type CaptureFailed struct{}

func (Enabled) isEvent()           {}
func (DevicesLoaded) isEvent()     {}
func (DeviceSelected) isEvent()    {}
func (StreamStarted) isEvent()     {}
func (StreamFailed) isEvent()      {}
func (ResolutionChanged) isEvent() {}
func (FrameCaptured) isEvent()     {}
func (CaptureFailed) isEvent()     {}

// Reduce applies one event to a session and returns the next session. It is
// pure: device I/O lives in the check runner.
func Reduce(s Session, ev Event) Session {
	switch e := ev.(type) {
	case Enabled:
		s.Enabled = true
		s.Status = StatusLoadingDevices
		s.Message = StatusLoadingDevices.Describe()
	case DevicesLoaded:
		videoInputs := make([]DeviceDescriptor, 0, len(e.Devices))
		for _, d := range e.Devices {
			if d.Kind == KindVideoInput {
				videoInputs = append(videoInputs, d)
			}
		}
		s.Devices = videoInputs
		s.Status = StatusDeviceListLoaded
		s.Message = StatusDeviceListLoaded.Describe()
	case DeviceSelected:
		if e.DeviceID == "" || !hasDevice(s.Devices, e.DeviceID) {
			s.SelectedDeviceID = ""
			s.Status = StatusNoDeviceSelected
			s.Message = StatusNoDeviceSelected.Describe()
			break
		}
		s.SelectedDeviceID = e.DeviceID
		s.Status = StatusStartingDevice
		s.Message = StatusStartingDevice.Describe()
	case StreamStarted:
		s.Actual = e.Actual
		s.Status = StatusDeviceStarted
		s.Message = fmt.Sprintf("Got %s", e.Actual)
	case StreamFailed:
		s.Status = StatusError
		s.Message = e.Name
	case ResolutionChanged:
		s.Desired = e.Desired
		s.Status = StatusResizingVideo
		if e.Desired.Width > 0 && e.Desired.Height > 0 {
			ratio := float64(e.Desired.Width) / float64(e.Desired.Height)
			s.Message = fmt.Sprintf("Aspect ratio of %s is %.2f.", e.Desired, ratio)
		} else {
			s.Message = StatusResizingVideo.Describe()
		}
	case FrameCaptured:
		s.CapturedImage = e.Image
		s.CapturedBytes = len(e.Image)
		s.Message = fmt.Sprintf("Captured photo. Requested %s. Got %d bytes.", s.Actual, len(e.Image))
	case CaptureFailed:
		// A previously captured image stays.
		s.Message = "Failed to capture photo."
	}
	return s
}

func hasDevice(devices []DeviceDescriptor, id string) bool {
	for _, d := range devices {
		if d.DeviceID == id {
			return true
		}
	}
	return false
}

package camera

import (
	"testing"

	"github.com/stretchr/testify/require"

	"syscheck/internal/status"
)

func testDevices() []DeviceDescriptor {
	return []DeviceDescriptor{
		{DeviceID: "cam-front", Label: "Front Camera", Kind: KindVideoInput},
		{DeviceID: "mic-0", Label: "Microphone", Kind: "audioinput"},
		{DeviceID: "cam-back", Label: "Back Camera", Kind: KindVideoInput},
	}
}

func TestReduce_DevicesLoadedFiltersVideoInputs(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, Enabled{})
	require.Equal(t, StatusLoadingDevices, s.Status)

	s = Reduce(s, DevicesLoaded{Devices: testDevices()})
	require.Equal(t, StatusDeviceListLoaded, s.Status)
	require.Len(t, s.Devices, 2)
	for _, d := range s.Devices {
		require.Equal(t, KindVideoInput, d.Kind)
	}
}

func TestReduce_EmptyDeviceListLeavesNothingSelected(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, Enabled{})
	s = Reduce(s, DevicesLoaded{Devices: []DeviceDescriptor{
		{DeviceID: "mic-0", Kind: "audioinput"},
	}})
	s = Reduce(s, DeviceSelected{DeviceID: ""})

	require.Equal(t, StatusNoDeviceSelected, s.Status)
	require.Empty(t, s.SelectedDeviceID)
	require.Equal(t, status.UserInteractionRequired, Projection(s))
}

func TestReduce_SelectionMustBeEnumerated(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, Enabled{})
	s = Reduce(s, DevicesLoaded{Devices: testDevices()})

	s = Reduce(s, DeviceSelected{DeviceID: "cam-back"})
	require.Equal(t, "cam-back", s.SelectedDeviceID)
	require.Equal(t, StatusStartingDevice, s.Status)

	s = Reduce(s, DeviceSelected{DeviceID: "no-such-device"})
	require.Empty(t, s.SelectedDeviceID)
	require.Equal(t, StatusNoDeviceSelected, s.Status)
}

func TestReduce_StreamNegotiation(t *testing.T) {
	s := NewSession(Resolution{Width: 2560, Height: 1440})
	s = Reduce(s, Enabled{})
	s = Reduce(s, DevicesLoaded{Devices: testDevices()})
	s = Reduce(s, DeviceSelected{DeviceID: "cam-front"})

	// The device may grant less than requested.
	s = Reduce(s, StreamStarted{Actual: Resolution{Width: 1280, Height: 720}})
	require.Equal(t, StatusDeviceStarted, s.Status)
	require.Equal(t, Resolution{Width: 1280, Height: 720}, s.Actual)
	require.Equal(t, Resolution{Width: 2560, Height: 1440}, s.Desired)
	require.Equal(t, "Got 1280x720", s.Message)
}

func TestReduce_StreamFailureSurfacesErrorName(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, Enabled{})
	s = Reduce(s, StreamFailed{Name: "NotAllowedError"})
	require.Equal(t, StatusError, s.Status)
	require.Equal(t, "NotAllowedError", s.Message)
	require.Equal(t, status.Failure, Projection(s))
}

func TestReduce_ResolutionChange(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, ResolutionChanged{Desired: Resolution{Width: 1920, Height: 1080}})
	require.Equal(t, StatusResizingVideo, s.Status)
	require.Equal(t, Resolution{Width: 1920, Height: 1080}, s.Desired)
	require.Equal(t, "Aspect ratio of 1920x1080 is 1.78.", s.Message)
	require.Equal(t, status.Pending, Projection(s))
}

func TestReduce_ResolutionChangeWithDegenerateDimensions(t *testing.T) {
	for _, desired := range []Resolution{
		{Width: 1280, Height: 0},
		{Width: 0, Height: 720},
		{Width: -1, Height: -1},
	} {
		s := Reduce(NewSession(Resolution{Width: 1280, Height: 720}), ResolutionChanged{Desired: desired})
		require.Equal(t, StatusResizingVideo, s.Status, "resolution %s", desired)
		require.Equal(t, "Changing camera resolution", s.Message, "resolution %s", desired)
	}
}

func TestReduce_CaptureKeepsPreviousImageOnFailure(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, Enabled{})
	s = Reduce(s, StreamStarted{Actual: Resolution{Width: 640, Height: 480}})

	image := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	s = Reduce(s, FrameCaptured{Image: image})
	require.Equal(t, image, s.CapturedImage)
	require.Equal(t, 5, s.CapturedBytes)
	require.Equal(t, "Captured photo. Requested 640x480. Got 5 bytes.", s.Message)

	s = Reduce(s, CaptureFailed{})
	require.Equal(t, image, s.CapturedImage)
	require.Equal(t, "Failed to capture photo.", s.Message)
}

func TestProjection_CaptureOverridesPhase(t *testing.T) {
	s := NewSession(Resolution{Width: 1280, Height: 720})
	s = Reduce(s, Enabled{})
	s = Reduce(s, StreamStarted{Actual: Resolution{Width: 640, Height: 480}})
	s = Reduce(s, FrameCaptured{Image: []byte{1, 2, 3}})

	// Whatever the device machinery does next, a captured photo means the
	// prerequisite is met.
	for _, ev := range []Event{
		StreamFailed{Name: "NotReadableError"},
		ResolutionChanged{Desired: Resolution{Width: 320, Height: 240}},
		DeviceSelected{DeviceID: ""},
	} {
		next := Reduce(s, ev)
		require.Equal(t, status.Success, Projection(next))
	}
}

func TestProjection_PhaseMapping(t *testing.T) {
	cases := map[Status]status.State{
		StatusUnknown:          status.Pending,
		StatusLoadingDevices:   status.Pending,
		StatusStartingDevice:   status.Pending,
		StatusResizingVideo:    status.Pending,
		StatusDeviceListLoaded: status.UserInteractionRequired,
		StatusDeviceStarted:    status.UserInteractionRequired,
		StatusNoDeviceSelected: status.UserInteractionRequired,
		StatusError:            status.Failure,
	}
	for phase, want := range cases {
		s := Session{Status: phase}
		require.Equal(t, want, Projection(s), "phase %s", phase)
	}
}

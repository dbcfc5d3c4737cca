package system

import (
	"testing"

	"github.com/stretchr/testify/require"

	"syscheck/internal/status"
)

type fakeReporter struct {
	name  string
	state status.State
}

func (f *fakeReporter) Name() string             { return f.name }
func (f *fakeReporter) Projection() status.State { return f.state }
func (f *fakeReporter) Detail() any              { return map[string]string{"name": f.name} }

func TestAggregator_Snapshot(t *testing.T) {
	agg := NewAggregator(
		&fakeReporter{name: "camera", state: status.UserInteractionRequired},
		&fakeReporter{name: "geolocation", state: status.Success},
		&fakeReporter{name: "qr", state: status.Failure},
		&fakeReporter{name: "backend", state: status.Pending},
	)

	snap := agg.Snapshot()
	require.False(t, snap.GeneratedAt.IsZero())
	require.Len(t, snap.Checks, 4)
	require.Equal(t, "camera", snap.Checks[0].Name)
	require.Equal(t, "👋", snap.Checks[0].Icon)
	require.Equal(t, status.Success, snap.Checks[1].State)
	require.NotNil(t, snap.Checks[2].Detail)
}

func TestAggregator_CheckLookup(t *testing.T) {
	camera := &fakeReporter{name: "camera", state: status.Pending}
	agg := NewAggregator(camera)

	got, ok := agg.Check("camera")
	require.True(t, ok)
	require.Same(t, camera, got.(*fakeReporter))

	_, ok = agg.Check("missing")
	require.False(t, ok)
}

func TestAggregator_Satisfied(t *testing.T) {
	require.False(t, NewAggregator().Satisfied())

	partial := NewAggregator(
		&fakeReporter{name: "a", state: status.Success},
		&fakeReporter{name: "b", state: status.Pending},
	)
	require.False(t, partial.Satisfied())

	all := NewAggregator(
		&fakeReporter{name: "a", state: status.Success},
		&fakeReporter{name: "b", state: status.Success},
	)
	require.True(t, all.Satisfied())
}

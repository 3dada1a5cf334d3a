package animations

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/facet/pkg/scheduler"
	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

const testShapeJSON = `{
  "led_per_face": 3,
  "sensors": 2,
  "faces": [
    {"face_id": 0, "index": 0, "layer": 0, "sensors": [0], "pos": [0.2, 0.1, 0.5]},
    {"face_id": 1, "index": 1, "layer": 0, "sensors": [0, 1], "pos": [0.8, 0.1, 0.5]},
    {"face_id": 2, "index": 0, "layer": 1, "sensors": [], "pos": [0.5, 0.9, 0.5]}
  ]
}`

func testShape(t *testing.T) (*shape.Shape, *shape.MemoryStrip) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "octa.json")
	require.NoError(t, os.WriteFile(path, []byte(testShapeJSON), 0o644))
	strip := shape.NewMemoryStrip(9)
	sh, err := shape.Load(path, strip)
	require.NoError(t, err)
	return sh, strip
}

func testStore(readings []state.Reading) *state.Store {
	return state.NewStore(map[string]interface{}{
		state.KeyDistances: readings,
	})
}

// runUntilFrames runs an animation until the strip has flushed at least
// n frames, then cancels and verifies a clean context exit.
func runUntilFrames(t *testing.T, anim scheduler.Animation, sh *shape.Shape, strip *shape.MemoryStrip, store *state.Store, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- anim.Animate(ctx, sh, store) }()

	require.Eventually(t, func() bool {
		return strip.Writes() >= n
	}, 5*time.Second, 5*time.Millisecond, "animation never rendered %d frames", n)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not stop on cancel", anim.Name())
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"rainbow", "parabola", "flashing_purple"}, reg.Names())
	assert.Equal(t, "rainbow", reg.First().Name())
}

func TestFaceTemperaturePicksHottestSensor(t *testing.T) {
	sh, _ := testShape(t)
	readings := []state.Reading{
		state.NewReading(100, 40),
		state.MissedReading(90),
	}

	assert.Equal(t, 40, faceTemperature(sh, readings, 0))
	assert.Equal(t, 90, faceTemperature(sh, readings, 1))
	assert.Equal(t, 0, faceTemperature(sh, readings, 2), "sensorless face")
	assert.Equal(t, 0, faceTemperature(sh, readings, 99), "out of range face")
	assert.Equal(t, 0, faceTemperature(sh, nil, 0), "no readings yet")
}

func TestBallStepResetsAtWalls(t *testing.T) {
	// Carried past the right wall: reset at x=1, moving left.
	b := ball{x: 0.99, z: 0.5, y: 0.5, vx: 2.0, vz: 0}
	b = b.step()
	assert.Equal(t, 1.0, b.x)
	assert.Equal(t, 0.0, b.z)
	assert.Equal(t, -initialVX, b.vx)
	assert.Equal(t, initialVZ, b.vz)

	// Carried past the left wall: full reset, moving right.
	b = ball{x: 0.01, z: 0.5, y: 0.5, vx: -2.0, vz: 0}
	b = b.step()
	assert.Equal(t, newBall(), b)

	// Fallen below the floor: full reset.
	b = ball{x: 0.5, z: -1.5, y: 0.5, vx: initialVX, vz: -3}
	b = b.step()
	assert.Equal(t, newBall(), b)
}

func TestBallStepIntegratesGravity(t *testing.T) {
	b := ball{x: 0.5, z: 0.5, y: 0.5, vx: 0, vz: 0}
	next := b.step()
	assert.Less(t, next.z, b.z, "ball must fall")
	assert.Less(t, next.vz, b.vz, "downward velocity must grow")
	assert.Equal(t, b.x, next.x)
}

func TestParabolaRendersAndStops(t *testing.T) {
	sh, strip := testShape(t)
	store := testStore([]state.Reading{
		state.NewReading(120, 80),
		state.NewReading(300, 10),
	})
	runUntilFrames(t, NewParabola(), sh, strip, store, 3)

	// Every face carries the base channel at full value, so no face is
	// ever completely dark.
	for face := 0; face < sh.NumFaces; face++ {
		c := sh.FaceColor(face)
		assert.True(t, c[0] == 255 || c[1] == 255 || c[2] == 255,
			"face %d has no saturated base channel: %v", face, c)
	}
}

func TestRainbowRendersAndStops(t *testing.T) {
	sh, strip := testShape(t)
	store := testStore([]state.Reading{
		state.NewReading(120, 200),
		state.NewReading(300, 0),
	})
	runUntilFrames(t, NewRainbow(), sh, strip, store, 3)
}

func TestScaleColor(t *testing.T) {
	assert.Equal(t, shape.Color{127, 0, 0}, scaleColor(shape.Color{255, 0, 0}, 0.5))
	assert.Equal(t, shape.Color{}, scaleColor(shape.Color{255, 255, 255}, 0))
	assert.Equal(t, shape.Color{255, 127, 0}, scaleColor(shape.Color{255, 127, 0}, 1))
}

func TestFlashingPurpleTemperatureShiftsHue(t *testing.T) {
	sh, strip := testShape(t)
	// Sensor 0 is cold, sensor 1 is saturated hot. Face 0 sees only the
	// cold sensor, face 1 the hot one.
	store := testStore([]state.Reading{
		state.NewReading(500, 0),
		state.NewReading(80, 255),
	})
	runUntilFrames(t, NewFlashingPurple(), sh, strip, store, 2)

	cold := sh.FaceColor(0)
	hot := sh.FaceColor(1)
	assert.Equal(t, cold[0], cold[2], "cold face stays purple (blue matches red)")
	assert.Equal(t, uint8(0), hot[2], "saturated face loses its blue channel")
	assert.Positive(t, hot[0])
}

func TestLerpColor(t *testing.T) {
	a := shape.Color{0, 100, 255}
	b := shape.Color{255, 100, 0}
	assert.Equal(t, a, lerpColor(a, b, 0))
	assert.Equal(t, b, lerpColor(a, b, 1))
	mid := lerpColor(a, b, 0.5)
	assert.Equal(t, shape.Color{127, 100, 127}, mid)
}

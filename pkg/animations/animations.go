// Package animations holds the render loops the sculpture can run. Each
// animation is a frame loop over the shared sensor snapshot that exits
// only when its context is cancelled.
package animations

import (
	"context"
	"time"

	"github.com/lumenworks/facet/pkg/scheduler"
	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

// DefaultRegistry returns the closed animation set in its default order.
// The first entry is what a freshly booted sculpture renders before the
// coordinator has selected anything.
func DefaultRegistry() (*scheduler.Registry, error) {
	return scheduler.NewRegistry(
		NewRainbow(),
		NewParabola(),
		NewFlashingPurple(),
	)
}

// sensorReadings pulls the current distance slice out of the store. A
// store that has never seen a sensor cycle yields nil; callers treat
// missing slots as temperature zero.
func sensorReadings(store *state.Store) []state.Reading {
	readings, _ := store.Get()[state.KeyDistances].([]state.Reading)
	return readings
}

// faceTemperature returns the hottest accumulator among the sensors
// mapped to a face, zero when the face has none.
func faceTemperature(sh *shape.Shape, readings []state.Reading, face int) int {
	if face < 0 || face >= len(sh.FaceToSensors) {
		return 0
	}
	maxTemp := 0
	for _, sensor := range sh.FaceToSensors[face] {
		if sensor < len(readings) && readings[sensor].Temperature > maxTemp {
			maxTemp = readings[sensor].Temperature
		}
	}
	return maxTemp
}

// pauseFrame sleeps out the remainder of the frame budget, honoring
// cancellation. Overlong frames yield without sleeping.
func pauseFrame(ctx context.Context, frameStart time.Time, budget time.Duration) error {
	remaining := budget - time.Since(frameStart)
	if remaining <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// lerpColor interpolates between two colors by factor in [0,1].
func lerpColor(a, b shape.Color, factor float64) shape.Color {
	var out shape.Color
	for i := 0; i < 3; i++ {
		out[i] = clamp8(int(float64(a[i]) + (float64(b[i])-float64(a[i]))*factor))
	}
	return out
}

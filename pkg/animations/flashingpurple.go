package animations

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

const (
	purpleFrame  = time.Second / 30
	purpleSteps  = 100
	minIntensity = 50
)

// FlashingPurple bounces a plane of light up and down the layers. The red
// channel carries the plane intensity; the blue channel fades out as the
// face's sensor temperature rises, shifting warm faces from purple toward
// red.
type FlashingPurple struct{}

func NewFlashingPurple() *FlashingPurple { return &FlashingPurple{} }

func (f *FlashingPurple) Name() string { return "flashing_purple" }

func (f *FlashingPurple) Animate(ctx context.Context, sh *shape.Shape, store *state.Store) error {
	layerRatio := float64(purpleSteps) / float64(len(sh.Layers))

	step := 0
	direction := 1
	for {
		frameStart := time.Now()
		readings := sensorReadings(store)

		for layerIdx, layer := range sh.Layers {
			location := float64(layerIdx) * layerRatio
			offset := int(math.Abs(float64(step) - location))
			intensity := 255 - offset*30
			if intensity < minIntensity {
				intensity = minIntensity
			}
			for _, face := range layer {
				temp := faceTemperature(sh, readings, face)
				c := shape.Color{
					clamp8(intensity),
					0,
					clamp8(intensity * (255 - temp) / 255),
				}
				sh.SetFaceColor(face, c)
			}
		}

		if err := sh.Write(); err != nil {
			return fmt.Errorf("flashing_purple frame write: %w", err)
		}
		if err := pauseFrame(ctx, frameStart, purpleFrame); err != nil {
			return err
		}

		step += direction
		if step >= purpleSteps {
			step = purpleSteps - 1
			direction = -1
		} else if step < 0 {
			step = 0
			direction = 1
		}
	}
}

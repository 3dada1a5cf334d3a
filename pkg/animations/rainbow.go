package animations

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

var rainbowColors = []shape.Color{
	{255, 0, 0},
	{255, 127, 0},
	{255, 255, 0},
	{0, 255, 0},
	{0, 255, 255},
	{0, 0, 255},
	{127, 0, 255},
}

const (
	rainbowFrame = 50 * time.Millisecond
	sweepStep    = 300 * time.Millisecond

	// Temperature-driven pulsing: faces at or above pulseTempMin start
	// oscillating, ramping from pulseFreqMin to pulseFreqMax Hz as the
	// accumulator approaches its 255 ceiling.
	pulseTempMin   = 30
	pulseTempCeil  = 255
	pulseFreqMin   = 1.0 / 3.0
	pulseFreqMax   = 2.0
	baseBrightness = 0.5

	transitionSpeed = 0.1
)

// Rainbow sweeps the rainbow palette face by face across the layers,
// while faces near warm sensors pulse at a temperature-scaled frequency.
type Rainbow struct{}

func NewRainbow() *Rainbow { return &Rainbow{} }

func (r *Rainbow) Name() string { return "rainbow" }

func (r *Rainbow) Animate(ctx context.Context, sh *shape.Shape, store *state.Store) error {
	initial := scaleColor(rainbowColors[0], baseBrightness)
	sh.Fill(initial)
	if err := sh.Write(); err != nil {
		return fmt.Errorf("rainbow initial write: %w", err)
	}

	var (
		colorIndex int
		sweepLayer int
		sweepFace  int
		lastSweep  = time.Now()
		lastFrame  = time.Now()

		phases     = make([]float64, sh.NumFaces)
		current    = make([]shape.Color, sh.NumFaces)
		target     = make([]shape.Color, sh.NumFaces)
		transition = make([]float64, sh.NumFaces)
	)
	for i := 0; i < sh.NumFaces; i++ {
		current[i] = initial
		target[i] = initial
		transition[i] = 1.0
	}

	for {
		frameStart := time.Now()
		dt := frameStart.Sub(lastFrame).Seconds()
		lastFrame = frameStart

		readings := sensorReadings(store)

		// Advance the sweep cursor: next face in the layer, next layer,
		// then wrap and move to the next palette color.
		if frameStart.Sub(lastSweep) > sweepStep {
			switch {
			case sweepLayer == len(sh.Layers)-1 && sweepFace == len(sh.Layers[sweepLayer])-1:
				sweepLayer, sweepFace = 0, 0
				colorIndex = (colorIndex + 1) % len(rainbowColors)
			case sweepFace == len(sh.Layers[sweepLayer])-1:
				sweepLayer++
				sweepFace = 0
			default:
				sweepFace++
			}
			lastSweep = frameStart
		}

		for layerIdx, layer := range sh.Layers {
			for faceInLayer, face := range layer {
				base := rainbowColors[colorIndex]
				if layerIdx < sweepLayer ||
					(layerIdx == sweepLayer && faceInLayer <= sweepFace) {
					base = rainbowColors[(colorIndex+1)%len(rainbowColors)]
				}

				temp := faceTemperature(sh, readings, face)

				brightness := baseBrightness
				if temp >= pulseTempMin {
					clamped := math.Min(float64(temp), pulseTempCeil)
					factor := (clamped - pulseTempMin) / (pulseTempCeil - pulseTempMin)
					freq := pulseFreqMin + (pulseFreqMax-pulseFreqMin)*factor
					phases[face] = math.Mod(phases[face]+2*math.Pi*freq*dt, 2*math.Pi)
					brightness = 0.75 + 0.25*math.Sin(phases[face])
				}

				// Dark channels get a faint glow instead of the scale so a
				// pulsing face never collapses to a single channel.
				glow := int((brightness - baseBrightness) * 50)
				var final shape.Color
				for ch, v := range base {
					if v == 0 {
						final[ch] = clamp8(glow)
					} else {
						final[ch] = clamp8(int(float64(v) * brightness))
					}
				}

				if transition[face] >= 1.0 {
					current[face] = target[face]
					target[face] = final
					transition[face] = 0.0
				}
				transition[face] = math.Min(1.0, transition[face]+transitionSpeed)

				sh.SetFaceColor(face, lerpColor(current[face], target[face], transition[face]))
			}
		}

		if err := sh.Write(); err != nil {
			return fmt.Errorf("rainbow frame write: %w", err)
		}
		if err := pauseFrame(ctx, frameStart, rainbowFrame); err != nil {
			return err
		}
	}
}

func scaleColor(c shape.Color, factor float64) shape.Color {
	var out shape.Color
	for i, v := range c {
		out[i] = clamp8(int(float64(v) * factor))
	}
	return out
}

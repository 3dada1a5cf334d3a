package animations

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

const (
	parabolaFrame = 50 * time.Millisecond

	gravity   = 4.0 // m/s², acts in -z
	initialVX = 1.0
	initialVZ = 3.0
	ballDT    = 0.05

	// sensorInfluence scales how strongly a hot sensor bends the ball's
	// trajectory toward its face.
	sensorInfluence = 0.5
)

// ball is the projectile state: position in normalized shape space plus
// the two driven velocity components. y is the depth axis and stays
// fixed at mid-plane.
type ball struct {
	x, z, y float64
	vx, vz  float64
}

func newBall() ball {
	return ball{y: 0.5, vx: initialVX, vz: initialVZ}
}

// step advances the ball one time slice and applies the wall and floor
// reset rules.
func (b ball) step() ball {
	b.x += b.vx * ballDT
	b.z += b.vz*ballDT - 0.5*gravity*ballDT*ballDT
	b.vz -= gravity * ballDT

	switch {
	case b.x <= 0:
		b = newBall()
	case b.x >= 1:
		b = ball{x: 1, y: 0.5, vx: -initialVX, vz: initialVZ}
	case b.z < -1:
		b = newBall()
	}
	return b
}

// Parabola bounces a point of light through the shape. Each face's color
// mixes a fixed base channel, the inverse distance to the ball, and the
// face's sensor temperature; hot sensors also nudge the ball toward
// themselves.
type Parabola struct {
	rand *rand.Rand
}

func NewParabola() *Parabola {
	return &Parabola{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *Parabola) Name() string { return "parabola" }

func (p *Parabola) Animate(ctx context.Context, sh *shape.Shape, store *state.Store) error {
	// Each run deals the three roles onto random color channels.
	perm := p.rand.Perm(3)
	baseCh, ballCh, sensorCh := perm[0], perm[1], perm[2]

	b := newBall()
	for {
		frameStart := time.Now()
		readings := sensorReadings(store)
		b = b.step()

		for face := 0; face < sh.NumFaces; face++ {
			pos := sh.Positions[face]
			dist := math.Sqrt(
				(b.x-pos[0])*(b.x-pos[0]) +
					(b.z-pos[1])*(b.z-pos[1]) +
					(b.y-pos[2])*(b.y-pos[2]))
			dist = math.Max(0, math.Min(1, dist))

			var c shape.Color
			c[baseCh] = 255
			c[ballCh] = clamp8(int(255 * (1 - dist)))

			if len(sh.FaceToSensors[face]) > 0 {
				temp := faceTemperature(sh, readings, face)
				c[sensorCh] = clamp8(temp)
				if temp > 0 {
					factor := math.Min(1, float64(temp)/255) * sensorInfluence
					if math.Abs(pos[0]-b.x) > 0.1 {
						b.vx += math.Copysign(factor*ballDT, pos[0]-b.x)
					}
					if b.z > 0 {
						b.vz += factor * ballDT * 2
					}
				}
			}

			sh.SetFaceColor(face, c)
		}

		if err := sh.Write(); err != nil {
			return fmt.Errorf("parabola frame write: %w", err)
		}
		if err := pauseFrame(ctx, frameStart, parabolaFrame); err != nil {
			return err
		}
	}
}

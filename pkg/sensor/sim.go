package sensor

import (
	"fmt"
	"math/rand"
	"sync"
)

// SimBus is an in-process stand-in for the real sensor wiring. It honors
// the enable-line and addressing protocol exactly, so bring-up exercises
// the same code paths as hardware, and it synthesizes a visitor that
// wanders toward and away from the sculpture.
type SimBus struct {
	mu      sync.Mutex
	rng     *rand.Rand
	sensors []simSensor

	// FailRate is the probability that any single Ping returns an error.
	FailRate float64
}

type simSensor struct {
	powered  bool
	addr     byte
	distance int
	approach int
}

// NewSimBus creates a simulated bus with n sensors.
func NewSimBus(n int, seed int64) *SimBus {
	rng := rand.New(rand.NewSource(seed))
	sensors := make([]simSensor, n)
	for i := range sensors {
		sensors[i].distance = 1200 + rng.Intn(400)
	}
	return &SimBus{rng: rng, sensors: sensors}
}

func (b *SimBus) Power(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.sensors) {
		return
	}
	b.sensors[index].powered = true
	// Power-up resets the device to the default bus address.
	b.sensors[index].addr = DefaultAddress
}

func (b *SimBus) Shutdown(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.sensors) {
		return
	}
	b.sensors[index].powered = false
}

// Attach finds the single powered sensor answering at addr.
func (b *SimBus) Attach(addr byte) (Ranger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.sensors {
		if b.sensors[i].powered && b.sensors[i].addr == addr {
			return &simRanger{bus: b, index: i}, nil
		}
	}
	return nil, fmt.Errorf("no sensor answering at address %#x", addr)
}

type simRanger struct {
	bus   *SimBus
	index int
}

func (r *simRanger) SetTimingBudget(int) error      { return r.check() }
func (r *simRanger) SetPulsePeriods(_, _ int) error { return r.check() }

func (r *simRanger) SetAddress(addr byte) error {
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	s := &r.bus.sensors[r.index]
	if !s.powered {
		return fmt.Errorf("sensor %d is powered down", r.index)
	}
	s.addr = addr
	return nil
}

func (r *simRanger) Ping() (int, error) {
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	s := &r.bus.sensors[r.index]
	if !s.powered {
		return 0, fmt.Errorf("sensor %d is powered down", r.index)
	}
	if r.bus.FailRate > 0 && r.bus.rng.Float64() < r.bus.FailRate {
		return 0, fmt.Errorf("sensor %d read timeout", r.index)
	}

	// Random-walk a visitor: occasionally start an approach that pulls the
	// distance well under the hot threshold, then let it drift back out.
	if s.approach == 0 && r.bus.rng.Float64() < 0.002 {
		s.approach = 100 + r.bus.rng.Intn(200)
	}
	if s.approach > 0 {
		s.approach--
		s.distance = 150 + r.bus.rng.Intn(300)
	} else {
		s.distance += r.bus.rng.Intn(81) - 40
		if s.distance < 900 {
			s.distance = 900
		}
		if s.distance > 2000 {
			s.distance = 2000
		}
	}
	return s.distance, nil
}

func (r *simRanger) check() error {
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	if !r.bus.sensors[r.index].powered {
		return fmt.Errorf("sensor %d is powered down", r.index)
	}
	return nil
}

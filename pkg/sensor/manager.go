package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/facet/pkg/state"
)

// LockSender delivers a lock request to the coordinator. Delivery is
// fire-and-forget: a failed send is logged and not retried until the next
// spike past cooldown.
type LockSender interface {
	SendLock(ctx context.Context) error
}

// Options are the manager tunables. Zero values are not usable; main fills
// this from the process configuration.
type Options struct {
	Sensors        int
	PollInterval   time.Duration
	ReinitInterval time.Duration
	DistanceOffset int
	HotThreshold   int
	StepUp         int
	StepDown       int
	RiseThreshold  int
	HistoryLength  int
	LockCooldown   time.Duration
}

// Manager owns the sensor array. It is the only writer of the distances
// key and the only user of the bus.
type Manager struct {
	opts   Options
	bus    Bus
	store  *state.Store
	locker LockSender
	log    *zap.SugaredLogger

	// now is swapped out by tests to drive cooldown and reinit clocks.
	now func() time.Time

	rangers      []Ranger
	temps        []int
	history      []*tempHistory
	lastInit     time.Time
	lastLockSent time.Time
}

// NewManager builds a manager; Run does the bring-up.
func NewManager(opts Options, bus Bus, store *state.Store, locker LockSender, log *zap.SugaredLogger) *Manager {
	m := &Manager{
		opts:    opts,
		bus:     bus,
		store:   store,
		locker:  locker,
		log:     log,
		now:     time.Now,
		temps:   make([]int, opts.Sensors),
		history: make([]*tempHistory, opts.Sensors),
	}
	for i := range m.history {
		m.history[i] = newTempHistory(opts.HistoryLength)
	}
	return m
}

// Run brings up the array and polls it until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.rangers = m.bringUp(ctx)
	m.lastInit = m.now()
	// Allow an immediate lock send on the first spike.
	m.lastLockSent = m.lastInit.Add(-(m.opts.LockCooldown + time.Millisecond))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.now().Sub(m.lastInit) >= m.opts.ReinitInterval {
			m.log.Infow("reinitializing sensor array", "reason", "interval")
			m.rangers = m.bringUp(ctx)
			m.lastInit = m.now()
		}
		m.cycle(ctx)
		if !sleepCtx(ctx, m.opts.PollInterval) {
			return ctx.Err()
		}
	}
}

// bringUp runs the full array bring-up: everything off, then one sensor at
// a time through the two-attempt configuration machine. Slots that fail
// both attempts stay nil until the next full reinit.
func (m *Manager) bringUp(ctx context.Context) []Ranger {
	for i := 0; i < m.opts.Sensors; i++ {
		m.bus.Shutdown(i)
	}
	sleepCtx(ctx, busResetWait)

	rangers := make([]Ranger, m.opts.Sensors)
	for i := range rangers {
		rangers[i] = m.configure(ctx, i)
	}
	return rangers
}

// configure is the explicit two-attempt machine. The first attempt assumes
// a factory-fresh device at the default address and moves it to its slot
// address. The second assumes the device kept its slot address from a
// previous run without a power cycle and attaches there directly.
func (m *Manager) configure(ctx context.Context, index int) Ranger {
	addr := BaseAddress + byte(index)

	r, err := m.configureFresh(ctx, index, addr)
	if err == nil {
		m.log.Infow("sensor configured", "sensor", index, "addr", addr)
		return r
	}
	m.log.Warnw("fresh configure failed, trying pre-addressed",
		"sensor", index, "error", err)
	m.bus.Shutdown(index)
	sleepCtx(ctx, busResetWait)

	r, err = m.configurePreAddressed(ctx, index, addr)
	if err == nil {
		m.log.Infow("sensor configured at retained address", "sensor", index, "addr", addr)
		return r
	}
	m.log.Errorw("sensor excluded until next reinit", "sensor", index, "error", err)
	m.bus.Shutdown(index)
	return nil
}

func (m *Manager) configureFresh(ctx context.Context, index int, addr byte) (Ranger, error) {
	m.bus.Power(index)
	sleepCtx(ctx, powerSettle)

	r, err := m.bus.Attach(DefaultAddress)
	if err != nil {
		return nil, err
	}
	if err := m.applyTiming(ctx, r); err != nil {
		return nil, err
	}
	if err := r.SetAddress(addr); err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Manager) configurePreAddressed(ctx context.Context, index int, addr byte) (Ranger, error) {
	m.bus.Power(index)
	sleepCtx(ctx, powerSettle)

	r, err := m.bus.Attach(addr)
	if err != nil {
		return nil, err
	}
	if err := m.applyTiming(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Manager) applyTiming(ctx context.Context, r Ranger) error {
	if err := r.SetTimingBudget(timingBudgetMicros); err != nil {
		return err
	}
	if err := r.SetPulsePeriods(preRangePeriod, finalRangePeriod); err != nil {
		return err
	}
	// Confirm the sensor actually answers before trusting it.
	if _, err := r.Ping(); err != nil {
		return err
	}
	sleepCtx(ctx, pingSettle)
	return nil
}

// cycle performs one poll: read every present sensor, step the temperature
// accumulators, detect spikes, and publish the reading set.
func (m *Manager) cycle(ctx context.Context) {
	now := m.now()

	// A read error triggers a full array re-bring-up, but the remainder of
	// this cycle keeps reading through the slice it started with.
	rangers := m.rangers
	readings := make([]state.Reading, len(rangers))

	for i, r := range rangers {
		if r == nil {
			readings[i] = state.MissedReading(m.temps[i])
			continue
		}
		raw, err := r.Ping()
		if err != nil {
			m.log.Warnw("sensor read failed, reinitializing array",
				"sensor", i, "addr", BaseAddress+byte(i), "error", err)
			readings[i] = state.MissedReading(m.temps[i])
			m.rangers = m.bringUp(ctx)
			m.lastInit = now
			continue
		}
		distance := raw - m.opts.DistanceOffset
		if distance < 0 {
			distance = 0
		}
		m.temps[i] = stepTemperature(m.temps[i], distance, m.opts)
		readings[i] = state.NewReading(distance, m.temps[i])
	}

	if spiker := m.detectSpike(now); spiker >= 0 {
		if now.Sub(m.lastLockSent) > m.opts.LockCooldown {
			m.log.Infow("temperature spike, sending lock request",
				"sensor", spiker, "temp", m.temps[spiker])
			if err := m.locker.SendLock(ctx); err != nil {
				m.log.Errorw("lock request failed", "error", err)
			}
			// The attempt counts against the cooldown whether or not it
			// was delivered.
			m.lastLockSent = now
		}
	}

	m.store.Update(state.KeyDistances, readings)
}

// detectSpike appends the current temperatures to the history rings and
// returns the first sensor whose temperature rose past the threshold
// within the window, or -1.
func (m *Manager) detectSpike(now time.Time) int {
	spiker := -1
	for i := range m.temps {
		m.history[i].push(now, m.temps[i])
		if spiker < 0 && m.history[i].risen(m.temps[i], m.opts.RiseThreshold) {
			spiker = i
		}
	}
	return spiker
}

// stepTemperature nudges the accumulator toward hot or cold and clamps it
// to the 0..255 range.
func stepTemperature(current, distance int, opts Options) int {
	if distance < opts.HotThreshold {
		current += opts.StepUp
	} else {
		current -= opts.StepDown
	}
	if current < 0 {
		return 0
	}
	if current > 255 {
		return 255
	}
	return current
}

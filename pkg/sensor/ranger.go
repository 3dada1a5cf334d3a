// Package sensor owns the ranging-sensor array: bus bring-up, the polling
// cycle that derives temperatures from distances, spike detection, and
// publishing readings into the shared store.
package sensor

import (
	"context"
	"time"
)

// Bus addresses. Every sensor answers at DefaultAddress after power-up;
// bring-up moves sensor i to BaseAddress+i so all of them can share the bus.
const (
	DefaultAddress byte = 0x29
	BaseAddress    byte = 0x33
)

// Measurement configuration applied to every sensor during bring-up.
const (
	timingBudgetMicros = 20000
	preRangePeriod     = 18
	finalRangePeriod   = 14

	powerSettle  = 50 * time.Millisecond
	pingSettle   = 10 * time.Millisecond
	busResetWait = 50 * time.Millisecond
)

// Ranger is one ranging sensor attached at a bus address.
type Ranger interface {
	// SetTimingBudget configures the measurement timing budget in microseconds.
	SetTimingBudget(micros int) error
	// SetPulsePeriods configures the pre-range and final-range pulse periods.
	SetPulsePeriods(preRange, finalRange int) error
	// Ping performs one ranging measurement and returns raw distance in mm.
	Ping() (int, error)
	// SetAddress moves the device to a new bus address.
	SetAddress(addr byte) error
}

// Bus models the shared wiring: one enable line per sensor plus device
// attachment by address. The real transport is hardware glue outside this
// module; SimBus stands in for it otherwise.
type Bus interface {
	// Power drives a sensor's enable line high.
	Power(index int)
	// Shutdown drives a sensor's enable line low.
	Shutdown(index int)
	// Attach opens the device currently answering at addr.
	Attach(addr byte) (Ranger, error)
}

// sleepCtx sleeps for d unless the context is cancelled first. Returns
// false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

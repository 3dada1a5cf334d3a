// Package watchdog restarts the node after a fixed stretch of uptime.
// The installation runs unattended for weeks; a periodic restart clears
// slow leaks in the LED driver and the sensor bus before they matter.
package watchdog

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// Watchdog fires one reset after the configured uptime. It is not an
// error path: the reset is unconditional.
type Watchdog struct {
	after time.Duration
	reset func()
	log   *zap.SugaredLogger
}

// New builds a watchdog. A nil reset exits the process for the service
// supervisor to restart.
func New(after time.Duration, reset func(), log *zap.SugaredLogger) *Watchdog {
	if reset == nil {
		reset = func() { os.Exit(0) }
	}
	return &Watchdog{after: after, reset: reset, log: log}
}

// Run waits out the uptime budget and fires the reset, unless the
// context is cancelled first.
func (w *Watchdog) Run(ctx context.Context) error {
	timer := time.NewTimer(w.after)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		w.log.Infow("uptime budget reached, restarting", "after", w.after)
		w.reset()
		return nil
	}
}

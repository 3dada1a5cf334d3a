package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

// handle pairs a running animation task with its cancellation token. At
// most one handle is live at a time.
type handle struct {
	name   string
	cancel context.CancelFunc
	done   chan error
}

// Scheduler owns the LED output handoff: it starts animations, polls the
// store for a new selection, and guarantees the old task has fully exited
// before the next one renders its first frame.
type Scheduler struct {
	registry   *Registry
	store      *state.Store
	sh         *shape.Shape
	log        *zap.SugaredLogger
	switchPoll time.Duration
	forceFile  string

	// blinkDelay paces the fallback error pattern; tests compress it.
	blinkDelay time.Duration

	current string
	active  *handle
}

// New builds a scheduler over a registry.
func New(registry *Registry, store *state.Store, sh *shape.Shape, switchPoll time.Duration, forceFile string, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		registry:   registry,
		store:      store,
		sh:         sh,
		log:        log,
		switchPoll: switchPoll,
		forceFile:  forceFile,
		blinkDelay: 500 * time.Millisecond,
	}
}

// Run drives the scheduler until the context is cancelled. The first
// animation is the forced one when the marker file names a registered
// animation, otherwise the first registered.
func (s *Scheduler) Run(ctx context.Context) error {
	first := s.registry.First().Name()
	if forced, ok := s.readForceMarker(); ok {
		if _, registered := s.registry.Lookup(forced); registered {
			s.log.Infow("forcing animation", "animation", forced)
			first = forced
		} else {
			s.log.Warnw("forced animation not registered, ignoring", "animation", forced)
		}
	}
	s.start(ctx, first)

	ticker := time.NewTicker(s.switchPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return ctx.Err()
		case <-ticker.C:
			s.reapFault()
			s.maybeSwitch(ctx)
		}
	}
}

// maybeSwitch swaps animations when the store names a different registered
// one. The old task is joined before the new one starts.
func (s *Scheduler) maybeSwitch(ctx context.Context) {
	snapshot := s.store.Get()
	next, _ := snapshot[state.KeyAnimation].(string)
	if next == "" || next == s.current {
		return
	}
	if _, ok := s.registry.Lookup(next); !ok {
		return
	}

	s.log.Infow("switching animation", "from", s.current, "to", next)
	s.stopCurrent()
	s.start(ctx, next)
}

// start launches the named animation. Panics inside the task are caught
// here, at the scheduler boundary.
func (s *Scheduler) start(ctx context.Context, name string) {
	anim, ok := s.registry.Lookup(name)
	if !ok {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("animation %s panicked: %v", name, r)
			}
		}()
		done <- anim.Animate(runCtx, s.sh, s.store)
	}()

	s.active = &handle{name: name, cancel: cancel, done: done}
	s.current = name
}

// stopCurrent signals the active task and waits for it to observe the
// token and exit. A task that ignores its context stalls here; there is
// deliberately no timeout escalation.
func (s *Scheduler) stopCurrent() {
	if s.active == nil {
		return
	}
	s.active.cancel()
	err := <-s.active.done
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorw("animation exited with fault during stop",
			"animation", s.active.name, "error", err)
	}
	s.active = nil
}

// reapFault notices a task that died on its own (fault or panic), logs it,
// and answers with the fallback error pattern. The slot stays empty until
// a new selection arrives; the faulting animation is not retried.
func (s *Scheduler) reapFault() {
	if s.active == nil {
		return
	}
	select {
	case err := <-s.active.done:
		name := s.active.name
		s.active.cancel()
		s.active = nil
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Errorw("animation fault", "animation", name, "error", err)
		} else {
			s.log.Warnw("animation exited unexpectedly", "animation", name)
		}
		s.errorPattern()
	default:
	}
}

// errorPattern flashes the whole shape red three times, writing the strip
// directly. It is best-effort: a further fault while displaying it is
// swallowed and logged.
func (s *Scheduler) errorPattern() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("error pattern failed", "panic", r)
		}
	}()
	for i := 0; i < 3; i++ {
		s.sh.Fill(shape.Color{255, 0, 0})
		if err := s.sh.Write(); err != nil {
			s.log.Errorw("error pattern write failed", "error", err)
			return
		}
		time.Sleep(s.blinkDelay)
		s.sh.Fill(shape.Color{})
		if err := s.sh.Write(); err != nil {
			s.log.Errorw("error pattern write failed", "error", err)
			return
		}
		time.Sleep(s.blinkDelay)
	}
}

// readForceMarker reads the forced-animation marker file once at startup.
func (s *Scheduler) readForceMarker() (string, bool) {
	if s.forceFile == "" {
		return "", false
	}
	raw, err := os.ReadFile(s.forceFile)
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(raw))
	return name, name != ""
}

// Package selector is the coordinator-side rotation loop: it publishes a
// random animation choice on a fixed period and holds the rotation while
// visitors keep the current animation locked.
package selector

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/facet/pkg/scheduler"
	"github.com/lumenworks/facet/pkg/state"
)

// Options carries the rotation tunables.
type Options struct {
	// Rotation is the baseline time between animation switches.
	Rotation time.Duration
	// LockWindow is how long a single lock message keeps the rotation
	// pinned.
	LockWindow time.Duration
	// MaxLockExtension caps how far past Rotation a stream of lock
	// messages can stretch one animation's slot.
	MaxLockExtension time.Duration
	// LockPoll is how often the lock timestamp is re-read while pinned.
	LockPoll time.Duration
}

// Selector drives the shared animation choice.
type Selector struct {
	registry *scheduler.Registry
	store    *state.Store
	opts     Options
	log      *zap.SugaredLogger

	rand    *rand.Rand
	now     func() time.Time
	current string
}

// New builds a selector over the registry's animation names.
func New(registry *scheduler.Registry, store *state.Store, opts Options, log *zap.SugaredLogger) *Selector {
	if opts.LockPoll <= 0 {
		opts.LockPoll = time.Second
	}
	return &Selector{
		registry: registry,
		store:    store,
		opts:     opts,
		log:      log,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// Run rotates until the context is cancelled. Each round publishes a new
// choice, sleeps the rotation period, then holds while a live lock keeps
// the slot pinned and the extension cap is not exhausted.
func (s *Selector) Run(ctx context.Context) error {
	for {
		start := s.now()
		s.current = s.pick()
		s.store.Update(state.KeyAnimation, s.current)
		s.log.Infow("selected animation", "animation", s.current)

		if err := sleepCtx(ctx, s.opts.Rotation); err != nil {
			return err
		}
		for s.lockActive(start) {
			if err := sleepCtx(ctx, s.opts.LockPoll); err != nil {
				return err
			}
		}
	}
}

// pick chooses a random registered animation different from the current
// one. With a single registration it is a no-op choice.
func (s *Selector) pick() string {
	names := s.registry.Names()
	if len(names) == 1 {
		return names[0]
	}
	next := names[s.rand.Intn(len(names))]
	for next == s.current {
		next = names[s.rand.Intn(len(names))]
	}
	return next
}

// lockActive reports whether the published lock timestamp still pins the
// rotation: the lock must be fresher than the lock window and the slot
// must not have exceeded rotation plus the extension cap.
func (s *Selector) lockActive(slotStart time.Time) bool {
	locked, ok := lockTimestamp(s.store.Get()[state.KeyLastLocked])
	if !ok {
		return false
	}
	now := s.now()
	return now.Sub(locked) < s.opts.LockWindow &&
		now.Sub(slotStart) < s.opts.Rotation+s.opts.MaxLockExtension
}

// lockTimestamp normalizes the stored Unix timestamp. It arrives as
// int64 from the request handler but may round-trip through JSON as
// float64.
func lockTimestamp(v interface{}) (time.Time, bool) {
	switch ts := v.(type) {
	case int64:
		return time.Unix(ts, 0), true
	case float64:
		return time.Unix(int64(ts), 0), true
	case int:
		return time.Unix(int64(ts), 0), true
	default:
		return time.Time{}, false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

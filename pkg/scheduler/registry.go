// Package scheduler runs exactly one animation at a time and swaps it when
// the selected-animation key changes. Cancellation is cooperative: a task
// that never checks its context stalls the scheduler, by contract.
package scheduler

import (
	"context"
	"fmt"

	"github.com/lumenworks/facet/pkg/shape"
	"github.com/lumenworks/facet/pkg/state"
)

// Animation is one registered behavior: an infinite render loop that
// re-reads the shared sensor snapshot every frame and returns only when
// its context is cancelled.
type Animation interface {
	Name() string
	Animate(ctx context.Context, sh *shape.Shape, store *state.Store) error
}

// Registry is the closed set of animations, fixed at startup. Lookup
// order is registration order; unknown names are rejected here, not at
// call time.
type Registry struct {
	order  []string
	byName map[string]Animation
}

// NewRegistry builds a registry from the given animations.
func NewRegistry(anims ...Animation) (*Registry, error) {
	if len(anims) == 0 {
		return nil, fmt.Errorf("registry needs at least one animation")
	}
	r := &Registry{byName: make(map[string]Animation, len(anims))}
	for _, a := range anims {
		name := a.Name()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate animation %q", name)
		}
		r.order = append(r.order, name)
		r.byName[name] = a
	}
	return r, nil
}

// Lookup returns the animation registered under name.
func (r *Registry) Lookup(name string) (Animation, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

// First returns the first registered animation.
func (r *Registry) First() Animation {
	return r.byName[r.order[0]]
}

// Len returns the number of registered animations.
func (r *Registry) Len() int {
	return len(r.order)
}

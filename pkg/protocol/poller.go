package protocol

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/facet/pkg/state"
)

// Poller is the sculpture-side query loop: it asks the coordinator for its
// state once per interval and publishes the selected animation into the
// local store. Query failures are logged and retried on the next tick.
type Poller struct {
	client   *Client
	store    *state.Store
	interval time.Duration
	log      *zap.SugaredLogger
}

// NewPoller builds a poller around an existing client.
func NewPoller(client *Client, store *state.Store, interval time.Duration, log *zap.SugaredLogger) *Poller {
	return &Poller{
		client:   client,
		store:    store,
		interval: interval,
		log:      log,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	snapshot, err := p.client.QueryState(ctx)
	if err != nil {
		p.log.Warnw("animation query failed", "error", err)
		return
	}
	name, ok := snapshot[state.KeyAnimation].(string)
	if !ok || name == "" {
		// The coordinator has not selected anything yet.
		return
	}
	p.store.Update(state.KeyAnimation, name)
}

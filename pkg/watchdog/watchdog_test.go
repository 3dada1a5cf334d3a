package watchdog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/facet/pkg/logging"
)

func TestFiresAfterUptime(t *testing.T) {
	var fired atomic.Bool
	w := New(10*time.Millisecond, func() { fired.Store(true) }, logging.Nop())

	require.NoError(t, w.Run(context.Background()))
	assert.True(t, fired.Load())
}

func TestCancelSuppressesReset(t *testing.T) {
	var fired atomic.Bool
	w := New(time.Hour, func() { fired.Store(true) }, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not observe cancellation")
	}
	assert.False(t, fired.Load())
}

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway/gatewaytest"

	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(gatewaytest.New(), time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	a := r.Create()
	b := r.Create()
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, r.Len())

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	require.Same(t, a, got)

	evicted := 0
	r.OnEvict(b.ID, func() { evicted++ })
	cancel := r.OnEvict(b.ID, func() { t.Error("cancelled hook ran") })
	cancel()

	now = now.Add(45 * time.Second)
	r.Touch(a.ID)
	now = now.Add(30 * time.Second)

	require.Equal(t, 1, r.Sweep())
	require.Equal(t, 1, evicted)
	_, ok = r.Get(b.ID)
	require.False(t, ok)
	_, ok = r.Get(a.ID)
	require.True(t, ok)

	r.Remove(a.ID)
	require.Zero(t, r.Len())
	r.Remove(a.ID)

	noop := r.OnEvict("missing", func() {})
	noop()
}

func TestRegistryRun(t *testing.T) {
	r := NewRegistry(gatewaytest.New(), time.Millisecond)
	app := r.Create()
	done := make(chan struct{})
	r.OnEvict(app.ID, func() { close(done) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx, 5*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle session was not evicted")
	}
	require.Zero(t, r.Len())
}

func TestRemoveWithHooksUnregisteringConcurrently(t *testing.T) {
	r := NewRegistry(gatewaytest.New(), time.Hour)
	app := r.Create()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		var cancel func()
		wg.Add(1)
		cancel = r.OnEvict(app.ID, func() {
			// a closed socket unregisters its own hook from its read goroutine
			go func() {
				defer wg.Done()
				cancel()
			}()
		})
	}

	r.Remove(app.ID)
	wg.Wait()
	require.Zero(t, r.Len())
}

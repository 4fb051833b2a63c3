// Package session maps browser session ids to their state.App and evicts the idle ones.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type entry struct {
	app      *state.App
	lastSeen time.Time
	hooks    map[int]func()
	nextHook int
}

// Registry owns every live state.App.
type Registry struct {
	gw   gateway.Gateway
	idle time.Duration

	mu   sync.Mutex
	apps map[string]*entry

	now func() time.Time
}

func NewRegistry(gw gateway.Gateway, idle time.Duration) *Registry {
	return &Registry{
		gw:   gw,
		idle: idle,
		apps: make(map[string]*entry),
		now:  time.Now,
	}
}

// Create starts a fresh App under a new random id.
func (r *Registry) Create() *state.App {
	app := state.NewApp(uuid.NewString(), r.gw)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ID] = &entry{app: app, lastSeen: r.now(), hooks: make(map[int]func())}
	return app
}

// Get returns the App for id and marks it as used.
func (r *Registry) Get(id string) (*state.App, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.apps[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.app, true
}

// Touch marks id as used without returning it.
func (r *Registry) Touch(id string) {
	r.Get(id)
}

// OnEvict registers fn to run when id is evicted or removed. The returned func unregisters it.
func (r *Registry) OnEvict(id string, fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.apps[id]
	if !ok {
		return func() {}
	}
	hook := e.nextHook
	e.nextHook++
	e.hooks[hook] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(e.hooks, hook)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// Remove drops id and runs its hooks.
func (r *Registry) Remove(id string) {
	var hooks []func()
	r.mu.Lock()
	if e, ok := r.apps[id]; ok {
		delete(r.apps, id)
		hooks = takeHooksLocked(e)
	}
	r.mu.Unlock()
	runHooks(hooks)
}

// takeHooksLocked detaches e's hooks so they can run without r.mu held.
func takeHooksLocked(e *entry) []func() {
	hooks := make([]func(), 0, len(e.hooks))
	for _, fn := range e.hooks {
		hooks = append(hooks, fn)
	}
	e.hooks = make(map[int]func())
	return hooks
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

// Sweep evicts every App idle for longer than the idle timeout and reports how many went.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	var (
		evicted int
		hooks   []func()
	)

	r.mu.Lock()
	for id, e := range r.apps {
		if e.lastSeen.Before(cutoff) {
			delete(r.apps, id)
			hooks = append(hooks, takeHooksLocked(e)...)
			evicted++
		}
	}
	r.mu.Unlock()

	runHooks(hooks)
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				zap.L().Info("Evicted idle sessions", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}

package render

import (
	"sort"
	"sync"
	"time"
)

// Effect is a named animation. Start allocates fresh per-device state; the
// returned Animation is owned by a single goroutine.
type Effect interface {
	Name() string
	Start(devices []Device) Animation
}

// Animation advances every device by one tick.
// The returned frames stay valid until the next call to Step. delay is the
// pause before the next step; done reports that the animation has finished.
type Animation interface {
	Step() (frames Frames, delay time.Duration, done bool)
}

type Registry struct {
	mu sync.RWMutex
	m  map[string]Effect
}

func NewRegistry() *Registry { return &Registry{m: map[string]Effect{}} }

func (r *Registry) Register(e Effect) {
	if e == nil {
		return
	}
	r.mu.Lock()
	r.m[e.Name()] = e
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.m[name]
	return e, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

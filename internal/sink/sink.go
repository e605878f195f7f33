// Package sink delivers rendered frames to LED strips.
//
// Every sink is best effort: a failed or slow device is logged and skipped,
// never retried, and never reported to the animation loop.
package sink

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/cheevolights/internal/render"
)

// Sink delivers one frame to one device. Send must not retain f after returning.
type Sink interface {
	Send(ctx context.Context, dev render.Device, f render.Frame)
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, dev render.Device, f render.Frame)

func (fn Func) Send(ctx context.Context, dev render.Device, f render.Frame) { fn(ctx, dev, f) }

// Observer is told about every frame after it has been handed to the sink.
type Observer interface {
	ObserveFrame(dev render.Device, f render.Frame)
}

// Dispatcher fans a tick's frames out to every device concurrently.
// It satisfies render.Driver.
type Dispatcher struct {
	Sink Sink
}

func NewDispatcher(s Sink) *Dispatcher { return &Dispatcher{Sink: s} }

// SendAll sends each device its frame in its own goroutine and waits for all of
// them. Devices without a frame in frames are skipped.
func (d *Dispatcher) SendAll(ctx context.Context, devices []render.Device, frames render.Frames) {
	var wg sync.WaitGroup
	for _, dev := range devices {
		f, ok := frames[dev.Addr]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(dev render.Device, f render.Frame) {
			defer wg.Done()
			d.Sink.Send(ctx, dev, f)
		}(dev, f)
	}
	wg.Wait()
}

// Router picks a sink by Device.Driver, falling back to the default route for
// an empty driver name.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]Sink
	fallback string
}

func NewRouter(fallback string) *Router {
	return &Router{routes: map[string]Sink{}, fallback: fallback}
}

func (r *Router) Handle(driver string, s Sink) {
	r.mu.Lock()
	r.routes[driver] = s
	r.mu.Unlock()
}

func (r *Router) Send(ctx context.Context, dev render.Device, f render.Frame) {
	name := dev.Driver
	if name == "" {
		name = r.fallback
	}
	r.mu.RLock()
	s, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("addr", dev.Addr).Str("driver", name).Msg("no sink for driver; frame dropped")
		return
	}
	s.Send(ctx, dev, f)
}

// Tee sends to s, then hands the same frame to each observer.
func Tee(s Sink, obs ...Observer) Sink {
	return Func(func(ctx context.Context, dev render.Device, f render.Frame) {
		s.Send(ctx, dev, f)
		for _, o := range obs {
			o.ObserveFrame(dev, f)
		}
	})
}

// Discard drops every frame.
var Discard Sink = Func(func(context.Context, render.Device, render.Frame) {})

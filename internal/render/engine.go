package render

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Driver abstracts the LED transport. SendAll delivers each device's frame
// independently and returns once every delivery attempt has finished.
// Transport failures never reach the caller.
type Driver interface {
	SendAll(ctx context.Context, devices []Device, frames Frames)
}

// Engine steps an Animation, writes each tick to the driver, then sleeps the
// animation's requested delay. Only one Run is expected at a time.
type Engine struct {
	Devices []Device
	Drv     Driver

	mu   sync.Mutex
	last Stats
}

// Stats describes the most recent run.
type Stats struct {
	Frames  uint64
	StepMS  float64
	Started time.Time
}

func NewEngine(devices []Device, drv Driver) (*Engine, error) {
	if drv == nil {
		return nil, errors.New("nil driver")
	}
	return &Engine{Devices: devices, Drv: drv}, nil
}

// Play starts e on the engine's devices and runs it until it completes or ctx ends.
func (e *Engine) Play(ctx context.Context, eff Effect) error {
	return e.Run(ctx, eff.Start(e.Devices))
}

// Run loops until the animation reports done (nil) or ctx is cancelled (ctx.Err()).
// Cancellation is checked before every step and during the inter-frame delay,
// so a cancelled run sends at most the frame already in flight.
func (e *Engine) Run(ctx context.Context, anim Animation) error {
	e.mu.Lock()
	e.last = Stats{Started: time.Now()}
	e.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		frames, delay, done := anim.Step()
		e.Drv.SendAll(ctx, e.Devices, frames)

		e.mu.Lock()
		e.last.Frames++
		e.last.StepMS = float64(time.Since(start).Microseconds()) / 1000.0
		e.mu.Unlock()

		if done {
			return nil
		}
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (e *Engine) Last() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHooks records calls; effects named "finite" finish on their own.
type fakeHooks struct {
	mu      sync.Mutex
	log     []string
	running bool
}

func (f *fakeHooks) hooks() Hooks {
	return Hooks{
		Start: func(name string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			if name == "missing" {
				f.log = append(f.log, "Unknown:"+name)
				return errors.New("not found")
			}
			f.log = append(f.log, "Start:"+name)
			f.running = name != "finite"
			return nil
		},
		Stop: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.log = append(f.log, "Stop")
			f.running = false
		},
		Wait: func(ctx context.Context) error {
			for {
				f.mu.Lock()
				r := f.running
				f.mu.Unlock()
				if !r {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
		},
	}
}

func (f *fakeHooks) entries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func TestPlayRunsStepsInOrder(t *testing.T) {
	fh := &fakeHooks{}
	p := NewPlayer(fh.hooks())
	require.NoError(t, p.Load(Program{Steps: []Step{
		{Effect: "dual_chase_bounce", Duration: 10 * time.Millisecond},
		{Effect: "missing", Duration: time.Hour},
		{Effect: "finite"},
	}}))

	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, []string{"Start:dual_chase_bounce", "Stop", "Unknown:missing", "Start:finite"}, fh.entries())
	assert.Equal(t, Idle, p.State())
}

func TestPlayStopsOnCancel(t *testing.T) {
	fh := &fakeHooks{}
	p := NewPlayer(fh.hooks())
	require.NoError(t, p.Load(Single("dual_chase_bounce", time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Play(ctx) }()

	require.Eventually(t, func() bool { return len(fh.entries()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Running, p.State())
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Play did not return after cancel")
	}
	assert.Equal(t, []string{"Start:dual_chase_bounce", "Stop"}, fh.entries())
}

func TestLoopingProgramWithNoPlayableStepsFails(t *testing.T) {
	fh := &fakeHooks{}
	p := NewPlayer(fh.hooks())
	require.NoError(t, p.Load(Program{Loop: true, Steps: []Step{{Effect: "missing"}}}))
	assert.Error(t, p.Play(context.Background()))
}

func TestLoadAndPlayValidation(t *testing.T) {
	p := NewPlayer((&fakeHooks{}).hooks())
	assert.Error(t, p.Load(Program{}))
	assert.Error(t, p.Play(context.Background()))
}

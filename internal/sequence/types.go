package sequence

import (
	"context"
	"sync"
	"time"
)

// Step plays one effect. A zero Duration runs the effect until it finishes on
// its own (or the program's context ends).
type Step struct {
	Effect   string        `yaml:"effect" json:"effect"`
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// Program is an ordered list of steps played for one celebration.
type Program struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Loop  bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Single is a one-step program.
func Single(effect string, d time.Duration) Program {
	return Program{Name: effect, Steps: []Step{{Effect: effect, Duration: d}}}
}

type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
)

// Hooks are dependency-injected callbacks into the effect supervisor.
type Hooks struct {
	// Start launches an effect, replacing whatever is running.
	Start func(name string) error
	// Stop requests cancellation of the running effect.
	Stop func()
	// Wait blocks until the running effect has exited or ctx ends.
	Wait func(ctx context.Context) error
}

// Player walks a Program through Hooks.
type Player struct {
	hooks Hooks
	prog  Program

	mu    sync.Mutex
	state PlayerState
	idx   int // step being played
}

package sequence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{state: Idle, hooks: h}
}

// Load replaces the current program.
func (p *Player) Load(prog Program) error {
	if len(prog.Steps) == 0 {
		return errors.New("program has no steps")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prog = prog
	p.idx = 0
	return nil
}

func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Step returns the index of the step being played.
func (p *Player) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Play runs every step in order, then returns to Idle. A step whose effect
// cannot be started is skipped. Looping programs repeat until ctx ends.
// The running effect is stopped and waited for before Play returns.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Running {
		p.mu.Unlock()
		return errors.New("player already running")
	}
	if len(p.prog.Steps) == 0 {
		p.mu.Unlock()
		return errors.New("no program loaded")
	}
	prog := p.prog
	p.state = Running
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.state = Idle
		p.idx = 0
		p.mu.Unlock()
	}()

	for {
		started := 0
		for i, step := range prog.Steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.mu.Lock()
			p.idx = i
			p.mu.Unlock()
			ok, err := p.playStep(ctx, step)
			if err != nil {
				return err
			}
			if ok {
				started++
			}
		}
		if !prog.Loop {
			return nil
		}
		if started == 0 {
			return errors.New("no step in looping program could start")
		}
	}
}

func (p *Player) playStep(ctx context.Context, step Step) (bool, error) {
	if err := p.hooks.Start(step.Effect); err != nil {
		log.Warn().Err(err).Str("effect", step.Effect).Msg("skipping step")
		return false, nil
	}
	if step.Duration <= 0 {
		// run to completion; ctx ending cancels it below
		err := p.hooks.Wait(ctx)
		if err == nil {
			return true, nil
		}
		p.stop()
		return true, err
	}

	t := time.NewTimer(step.Duration)
	defer t.Stop()
	select {
	case <-ctx.Done():
		p.stop()
		return true, ctx.Err()
	case <-t.C:
	}
	p.stop()
	return true, nil
}

// stop cancels the running effect and waits for it regardless of the
// program context, so the next step never overlaps the previous one.
func (p *Player) stop() {
	p.hooks.Stop()
	_ = p.hooks.Wait(context.Background())
}

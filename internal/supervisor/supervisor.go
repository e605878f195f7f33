// Package supervisor runs at most one lighting effect at a time.
package supervisor

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/cheevolights/internal/diagnostics"
	"github.com/coreman2200/cheevolights/internal/render"
	"github.com/coreman2200/cheevolights/internal/sequence"
)

// ErrNotFound is returned by Start for an unregistered effect name.
var ErrNotFound = errors.New("effect not found")

// Restorer puts the strips back into their idle state after a celebration.
type Restorer interface {
	Restore(ctx context.Context)
}

// RestoreFunc adapts a function to Restorer.
type RestoreFunc func(ctx context.Context)

func (f RestoreFunc) Restore(ctx context.Context) { f(ctx) }

type run struct {
	id     string
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

type Supervisor struct {
	eng      *render.Engine
	reg      *render.Registry
	diag     diag.Listener
	restorer Restorer

	mu  sync.Mutex
	cur *run
}

type Option func(*Supervisor)

func WithDiagnostics(l diag.Listener) Option { return func(s *Supervisor) { s.diag = l } }

func WithRestorer(r Restorer) Option { return func(s *Supervisor) { s.restorer = r } }

func New(eng *render.Engine, reg *render.Registry, opts ...Option) *Supervisor {
	s := &Supervisor{eng: eng, reg: reg}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Effects lists the registered effect names.
func (s *Supervisor) Effects() []string { return s.reg.List() }

// Start replaces the running effect with name. The previous run is cancelled
// and waited for before the new one launches, so two effects never write to
// the strips at once. An unknown name leaves the current run untouched.
func (s *Supervisor) Start(name string) error {
	eff, ok := s.reg.Get(name)
	if !ok {
		log.Warn().Str("effect", name).Msg("effect not found")
		s.diag.Emit(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.EffectUnknown, Summary: "Unknown effect name",
			Evidence: map[string]any{"name": name},
		})
		return errors.Wrapf(ErrNotFound, "start %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.cur; prev != nil {
		prev.cancel()
		<-prev.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{id: uuid.NewString(), name: name, cancel: cancel, done: make(chan struct{})}
	s.cur = r

	log.Info().Str("effect", name).Str("run", r.id).Msg("effect started")
	s.diag.Emit(diag.Diagnostic{
		Severity: diag.Info, Code: diag.EffectStarted, Summary: "Effect started", Detail: name,
		Evidence: map[string]any{"run": r.id},
	})
	go s.loop(ctx, r, eff)
	return nil
}

func (s *Supervisor) loop(ctx context.Context, r *run, eff render.Effect) {
	err := s.eng.Play(ctx, eff)
	// a joined Start may reset the engine stats as soon as done closes
	frames := s.eng.Last().Frames
	r.cancel()
	close(r.done)

	code, summary := diag.EffectCompleted, "Effect completed"
	if err != nil {
		code, summary = diag.EffectStopped, "Effect stopped"
	}
	log.Info().Str("effect", r.name).Str("run", r.id).Uint64("frames", frames).Msg(summary)
	s.diag.Emit(diag.Diagnostic{
		Severity: diag.Info, Code: code, Summary: summary, Detail: r.name,
		Evidence: map[string]any{"run": r.id, "frames": frames},
	})

	// done is closed before taking the lock: Start may hold it while joining.
	s.mu.Lock()
	if s.cur == r {
		s.cur = nil
	}
	s.mu.Unlock()
}

// Stop requests cancellation of the running effect and returns immediately.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return
	}
	log.Debug().Str("effect", s.cur.name).Str("run", s.cur.id).Msg("stop requested")
	s.cur.cancel()
}

// Wait blocks until the current run has exited or ctx ends.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the running effect's name, or "" when idle.
func (s *Supervisor) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.name
}

// Celebrate plays prog to the end, then restores the strips' idle state.
// Restoration runs even when ctx ends mid-program.
func (s *Supervisor) Celebrate(ctx context.Context, prog sequence.Program) error {
	p := sequence.NewPlayer(sequence.Hooks{Start: s.Start, Stop: s.Stop, Wait: s.Wait})
	if err := p.Load(prog); err != nil {
		return errors.Wrap(err, "celebration")
	}
	err := p.Play(ctx)
	if s.restorer != nil {
		s.restorer.Restore(context.WithoutCancel(ctx))
		s.diag.Emit(diag.Diagnostic{Severity: diag.Info, Code: diag.Restored, Summary: "Devices restored"})
	}
	return err
}

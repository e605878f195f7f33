package bounce

import (
	"time"

	"github.com/coreman2200/cheevolights/internal/render"
)

// Name is the registry key for the dual chase bounce.
const Name = "dual_chase_bounce"

// DefaultPalette cycles gold, white, blue, green.
var DefaultPalette = render.Palette{
	{R: 255, G: 215, B: 0},
	{R: 255, G: 255, B: 255},
	{R: 0, G: 0, B: 255},
	{R: 0, G: 255, B: 0},
}

type Config struct {
	Speed      int // LEDs moved per frame
	FrameDelay time.Duration
	Brightness float64
	Palette    render.Palette
}

func DefaultConfig() Config {
	return Config{Speed: 10, Brightness: 0.8, Palette: DefaultPalette}
}

// Bounce runs two markers from opposite ends of every strip toward each other;
// they reverse on crossing and are pushed back inward at the ends. It never
// finishes on its own.
type Bounce struct {
	name string
	cfg  Config
}

func New(name string, cfg Config) *Bounce {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultConfig().Speed
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = DefaultPalette
	}
	return &Bounce{name: name, cfg: cfg}
}

func (b *Bounce) Name() string { return b.name }

func (b *Bounce) Config() Config { return b.cfg }

func (b *Bounce) Start(devices []render.Device) render.Animation {
	a := &animation{cfg: b.cfg, devices: devices, states: make([]*state, len(devices))}
	for i, d := range devices {
		a.states[i] = newState(d.Count)
	}
	return a
}

type state struct {
	count      int
	posA, posB int
	dirA, dirB int
}

func newState(count int) *state {
	return &state{count: count, posA: 0, posB: count - 1, dirA: 1, dirB: -1}
}

// render paints both markers onto an all-off frame.
func (s *state) render(dst render.Frame, pal render.Palette, brightness float64) {
	dst.Clear()
	dst.Set(s.posA, pal.At(s.posA).Scale(brightness))
	dst.Set(s.posB, pal.At(s.posB).Scale(brightness))
}

// advance moves both markers, then applies the crossing flip and the end
// clamps in that order. A marker can land off the strip for a frame.
func (s *state) advance(speed int) {
	s.posA += s.dirA * speed
	s.posB += s.dirB * speed

	if s.posA >= s.posB {
		s.dirA = -s.dirA
		s.dirB = -s.dirB
	}
	if s.posA <= 0 {
		s.dirA = 1
	}
	if s.posB >= s.count-1 {
		s.dirB = -1
	}
}

type animation struct {
	cfg     Config
	devices []render.Device
	states  []*state
	frames  render.Frames
}

func (a *animation) Step() (render.Frames, time.Duration, bool) {
	if a.frames == nil {
		a.frames = make(render.Frames, len(a.devices))
		for _, d := range a.devices {
			a.frames[d.Addr] = render.NewFrame(d.Count)
		}
	}
	for i, d := range a.devices {
		s := a.states[i]
		s.render(a.frames[d.Addr], a.cfg.Palette, a.cfg.Brightness)
		s.advance(a.cfg.Speed)
	}
	return a.frames, a.cfg.FrameDelay, false
}

package explosion

import (
	"math/rand"
	"time"

	"github.com/coreman2200/cheevolights/internal/render"
)

const Name = "explosion_pulse"

// FirePalette runs from pure red to gold.
var FirePalette = render.Palette{
	{R: 255, G: 0, B: 0},
	{R: 200, G: 0, B: 0},
	{R: 255, G: 69, B: 0},
	{R: 255, G: 140, B: 0},
	{R: 255, G: 165, B: 0},
	{R: 255, G: 200, B: 0},
	{R: 255, G: 215, B: 0},
}

type Config struct {
	Speed      int // marker travel per blast frame
	BlastDelay time.Duration
	FadeDelay  time.Duration
	Brightness float64
	FadeChance float64 // per-LED probability of going dark each fade frame
	Palette    render.Palette
	// Rand drives color picks and fading. Nil seeds a new source per Start.
	Rand *rand.Rand
}

func DefaultConfig() Config {
	return Config{
		Speed:      10,
		BlastDelay: 500 * time.Microsecond,
		FadeDelay:  50 * time.Millisecond,
		Brightness: 1.0,
		FadeChance: 0.1,
		Palette:    FirePalette,
	}
}

// Explosion paints outward from the middle and both ends of each strip, then
// lets the lit LEDs die off at random.
type Explosion struct {
	name string
	cfg  Config
}

func New(name string, cfg Config) *Explosion {
	def := DefaultConfig()
	if cfg.Speed <= 0 {
		cfg.Speed = def.Speed
	}
	if cfg.FadeChance <= 0 || cfg.FadeChance > 1 {
		cfg.FadeChance = def.FadeChance
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = FirePalette
	}
	return &Explosion{name: name, cfg: cfg}
}

func (e *Explosion) Name() string { return e.name }

func (e *Explosion) Config() Config { return e.cfg }

func (e *Explosion) Start(devices []render.Device) render.Animation {
	rng := e.cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	a := &animation{
		cfg:     e.cfg,
		rng:     rng,
		devices: devices,
		states:  make([]*state, len(devices)),
		frames:  make(render.Frames, len(devices)),
	}
	for i, d := range devices {
		s := newState(d.Count)
		a.states[i] = s
		a.frames[d.Addr] = s.leds
	}
	return a
}

type phase int

const (
	expanding phase = iota
	fading
)

// state keeps its buffer across frames; nothing is cleared between steps.
type state struct {
	count       int
	leds        render.Frame
	centerLeft  int
	centerRight int
	startPos    int
	endPos      int
}

func newState(count int) *state {
	center := count / 2
	return &state{
		count:       count,
		leds:        render.NewFrame(count),
		centerLeft:  center,
		centerRight: center,
		startPos:    0,
		endPos:      count - 1,
	}
}

// expand paints the four markers and moves them outward, clamped to the strip.
func (s *state) expand(rng *rand.Rand, pal render.Palette, brightness float64, speed int) {
	for _, p := range [...]int{s.centerLeft, s.centerRight, s.startPos, s.endPos} {
		if p >= 0 && p < s.count {
			s.leds[p] = pal[rng.Intn(len(pal))].Scale(brightness)
		}
	}
	last := s.count - 1
	s.centerLeft = max(0, s.centerLeft-speed)
	s.centerRight = min(last, s.centerRight+speed)
	s.startPos = min(last, s.startPos+speed)
	s.endPos = max(0, s.endPos-speed)
}

// expanded reports whether every marker sits at its extreme.
func (s *state) expanded() bool {
	last := s.count - 1
	return s.centerLeft <= 0 && s.centerRight >= last && s.startPos >= last && s.endPos <= 0
}

// fade turns each lit LED dark with probability chance. Dark LEDs stay dark.
func (s *state) fade(rng *rand.Rand, chance float64) {
	for i, c := range s.leds {
		if !c.IsBlack() && rng.Float64() < chance {
			s.leds[i] = render.Black
		}
	}
}

type animation struct {
	cfg     Config
	rng     *rand.Rand
	phase   phase
	devices []render.Device
	states  []*state
	frames  render.Frames
}

func (a *animation) Step() (render.Frames, time.Duration, bool) {
	switch a.phase {
	case expanding:
		still := false
		for _, s := range a.states {
			s.expand(a.rng, a.cfg.Palette, a.cfg.Brightness, a.cfg.Speed)
			if !s.expanded() {
				still = true
			}
		}
		if !still {
			a.phase = fading
		}
		return a.frames, a.cfg.BlastDelay, false
	default:
		lit := false
		for _, s := range a.states {
			s.fade(a.rng, a.cfg.FadeChance)
			if s.leds.Lit() {
				lit = true
			}
		}
		return a.frames, a.cfg.FadeDelay, !lit
	}
}

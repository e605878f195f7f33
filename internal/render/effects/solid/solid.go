package solid

import (
	"strings"
	"time"

	"github.com/coreman2200/cheevolights/internal/render"
)

// Solid fills every strip with one color. With Hold == 0 it sends a single
// frame and finishes; otherwise it repeats the frame every Hold until cancelled.
type Solid struct {
	name string
	c    render.Color
	Hold time.Duration
}

func New(name string, c render.Color) *Solid { return &Solid{name: name, c: c} }

func (s *Solid) Name() string { return s.name }

func (s *Solid) Presets() []string { return []string{"Red", "Green", "Blue", "White", "Black"} }

// ApplyPreset switches to one of the named colors, ignoring case. It reports
// false and leaves the color alone for an unknown name.
func (s *Solid) ApplyPreset(name string) bool {
	switch strings.ToLower(name) {
	case "red":
		s.c = render.Color{R: 255}
	case "green":
		s.c = render.Color{G: 255}
	case "blue":
		s.c = render.Color{B: 255}
	case "white":
		s.c = render.Color{R: 255, G: 255, B: 255}
	case "black":
		s.c = render.Black
	default:
		return false
	}
	return true
}

func (s *Solid) Color() render.Color { return s.c }

func (s *Solid) Start(devices []render.Device) render.Animation {
	frames := make(render.Frames, len(devices))
	for _, d := range devices {
		f := render.NewFrame(d.Count)
		for i := range f {
			f[i] = s.c
		}
		frames[d.Addr] = f
	}
	return &animation{frames: frames, hold: s.Hold}
}

type animation struct {
	frames render.Frames
	hold   time.Duration
}

func (a *animation) Step() (render.Frames, time.Duration, bool) {
	return a.frames, a.hold, a.hold <= 0
}

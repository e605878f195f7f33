package render

import (
	"encoding/json"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Color is one LED's RGB value. It marshals as a JSON triple [r,g,b].
type Color struct{ R, G, B uint8 }

var Black = Color{}

// Scale multiplies each channel by brightness and truncates, clamping into 0..255.
func (c Color) Scale(brightness float64) Color {
	return Color{R: scale(c.R, brightness), G: scale(c.G, brightness), B: scale(c.B, brightness)}
}

func scale(v uint8, brightness float64) uint8 {
	x := float64(v) * brightness
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

func (c Color) IsBlack() bool { return c == Black }

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

func (c *Color) UnmarshalJSON(b []byte) error {
	var v [3]uint8
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.R, c.G, c.B = v[0], v[1], v[2]
	return nil
}

// Frame holds one color per LED on a strip, index 0..Count-1.
type Frame []Color

func NewFrame(count int) Frame {
	if count < 0 {
		count = 0
	}
	return make(Frame, count)
}

// Clear sets every LED to black.
func (f Frame) Clear() {
	for i := range f {
		f[i] = Black
	}
}

// Lit reports whether any LED is non-black.
func (f Frame) Lit() bool {
	for _, c := range f {
		if !c.IsBlack() {
			return true
		}
	}
	return false
}

// Set paints index i when it falls on the strip; out-of-range indices are skipped.
func (f Frame) Set(i int, c Color) {
	if i >= 0 && i < len(f) {
		f[i] = c
	}
}

// Device is one addressable strip. Count is fixed for the process lifetime.
type Device struct {
	Addr   string
	Count  int
	Driver string
}

// Frames maps device address to the frame computed for it this tick.
type Frames map[string]Frame

// Palette is an ordered list of colors an effect draws from.
type Palette []Color

// At returns the palette entry for i, wrapping negative indices the same way as positive ones.
func (p Palette) At(i int) Color {
	n := len(p)
	if n == 0 {
		return Black
	}
	return p[((i%n)+n)%n]
}

// ParsePalette reads "#rrggbb" strings into a Palette.
func ParsePalette(hex []string) (Palette, error) {
	out := make(Palette, 0, len(hex))
	for _, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, errors.Wrapf(err, "palette color %q", h)
		}
		r, g, b := c.RGB255()
		out = append(out, Color{R: r, G: g, B: b})
	}
	return out, nil
}

// Hex formats c as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

// Addrs returns the device addresses in sorted order.
func Addrs(devices []Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Addr)
	}
	sort.Strings(out)
	return out
}

// Package term draws frames in a terminal so effects can be previewed
// without hardware.
package term

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/coreman2200/cheevolights/internal/render"
)

const DriverName = "term"

// Screen is a sink that paints one block of rows per device.
type Screen struct {
	scr     tcell.Screen
	devices []render.Device

	mu    sync.Mutex
	width int
	rows  map[string]int // first LED row per device
}

// New takes over the terminal. Call Close to give it back.
func New(devices []render.Device) (*Screen, error) {
	scr, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := scr.Init(); err != nil {
		return nil, err
	}
	return NewWithScreen(scr, devices), nil
}

// NewWithScreen uses an already initialised screen.
func NewWithScreen(scr tcell.Screen, devices []render.Device) *Screen {
	s := &Screen{scr: scr, devices: devices}
	s.relayout()
	return s
}

func (s *Screen) relayout() {
	w, _ := s.scr.Size()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(1, w)
	s.rows = layout(s.devices, s.width)
	s.scr.Clear()
	for _, d := range s.devices {
		drawText(s.scr, 0, s.rows[d.Addr]-1, fmt.Sprintf("%s (%d)", d.Addr, d.Count))
	}
}

// layout gives each device a label row followed by its LEDs wrapped at width.
func layout(devices []render.Device, width int) map[string]int {
	rows := make(map[string]int, len(devices))
	y := 0
	for _, d := range devices {
		rows[d.Addr] = y + 1
		y += 1 + rowsFor(d.Count, width)
	}
	return rows
}

func rowsFor(count, width int) int {
	if count <= 0 {
		return 0
	}
	return (count + width - 1) / width
}

// cell maps LED i to screen coordinates given the device's first row.
func cell(i, first, width int) (x, y int) {
	return i % width, first + i/width
}

func (s *Screen) Send(_ context.Context, dev render.Device, f render.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first, ok := s.rows[dev.Addr]
	if !ok {
		return
	}
	for i, c := range f {
		x, y := cell(i, first, s.width)
		if c.IsBlack() {
			s.scr.SetContent(x, y, '·', nil, tcell.StyleDefault.Foreground(tcell.ColorGray))
			continue
		}
		col := tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
		s.scr.SetContent(x, y, '█', nil, tcell.StyleDefault.Foreground(col))
	}
	s.scr.Show()
}

// Run handles input until the user quits (Esc, Ctrl-C or q), then calls quit.
// It returns when the screen is closed.
func (s *Screen) Run(quit context.CancelFunc) {
	for {
		ev := s.scr.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			s.relayout()
			s.scr.Sync()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				quit()
			}
		}
	}
}

func (s *Screen) Close() { s.scr.Fini() }

func drawText(scr tcell.Screen, x, y int, text string) {
	if y < 0 {
		return
	}
	for _, r := range text {
		scr.SetContent(x, y, r, nil, tcell.StyleDefault.Bold(true))
		x++
	}
}

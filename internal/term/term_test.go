package term

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/cheevolights/internal/render"
)

func TestLayoutStacksDevices(t *testing.T) {
	devices := []render.Device{{Addr: "a", Count: 209}, {Addr: "b", Count: 174}}
	rows := layout(devices, 80)
	// a: label row 0, LEDs rows 1..3; b: label row 4, LEDs from row 5
	assert.Equal(t, map[string]int{"a": 1, "b": 5}, rows)
}

func TestRowsFor(t *testing.T) {
	assert.Equal(t, 0, rowsFor(0, 10))
	assert.Equal(t, 1, rowsFor(10, 10))
	assert.Equal(t, 2, rowsFor(11, 10))
}

func TestCellWraps(t *testing.T) {
	x, y := cell(0, 1, 80)
	assert.Equal(t, [2]int{0, 1}, [2]int{x, y})
	x, y = cell(81, 1, 80)
	assert.Equal(t, [2]int{1, 2}, [2]int{x, y})
}

func simScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	scr := tcell.NewSimulationScreen("")
	require.NoError(t, scr.Init())
	scr.SetSize(w, h)
	return scr
}

// at returns the rune and foreground color drawn at x, y.
func at(scr tcell.Screen, x, y int) (rune, tcell.Color) {
	r, _, style, _ := scr.GetContent(x, y)
	fg, _, _ := style.Decompose()
	return r, fg
}

func TestSendDrawsLitAndDarkCells(t *testing.T) {
	scr := simScreen(t, 10, 6)
	devices := []render.Device{{Addr: "a", Count: 12}, {Addr: "b", Count: 3}}
	s := NewWithScreen(scr, devices)
	defer s.Close()

	f := render.NewFrame(12)
	f[0] = render.Color{R: 255}
	f[11] = render.Color{B: 200}
	s.Send(context.Background(), devices[0], f)

	r, _ := at(scr, 0, 0)
	assert.Equal(t, 'a', r, "label row")

	r, fg := at(scr, 0, 1)
	assert.Equal(t, '█', r)
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), fg)

	r, _ = at(scr, 1, 1)
	assert.Equal(t, '·', r)

	// LED 11 wraps to the second LED row at width 10
	r, fg = at(scr, 1, 2)
	assert.Equal(t, '█', r)
	assert.Equal(t, tcell.NewRGBColor(0, 0, 200), fg)

	// second device: label on row 3, LEDs from row 4
	s.Send(context.Background(), devices[1], render.Frame{{G: 255}, render.Black, render.Black})
	r, fg = at(scr, 0, 4)
	assert.Equal(t, '█', r)
	assert.Equal(t, tcell.NewRGBColor(0, 255, 0), fg)

	// unknown device is ignored
	s.Send(context.Background(), render.Device{Addr: "zz", Count: 1}, render.Frame{{R: 1}})
}

func TestRelayoutFollowsScreenWidth(t *testing.T) {
	scr := simScreen(t, 10, 8)
	devices := []render.Device{{Addr: "a", Count: 12}}
	s := NewWithScreen(scr, devices)
	defer s.Close()

	scr.SetSize(5, 8)
	s.relayout()

	f := render.NewFrame(12)
	f[5] = render.Color{R: 7, G: 8, B: 9}
	s.Send(context.Background(), devices[0], f)

	r, fg := at(scr, 0, 2)
	assert.Equal(t, '█', r)
	assert.Equal(t, tcell.NewRGBColor(7, 8, 9), fg)
}

func TestQuitKeysCancel(t *testing.T) {
	for _, k := range []struct {
		name string
		key  tcell.Key
		r    rune
	}{
		{"escape", tcell.KeyEscape, 0},
		{"ctrl-c", tcell.KeyCtrlC, 0},
		{"q", tcell.KeyRune, 'q'},
	} {
		t.Run(k.name, func(t *testing.T) {
			scr := simScreen(t, 10, 4)
			s := NewWithScreen(scr, []render.Device{{Addr: "a", Count: 1}})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan struct{})
			go func() {
				s.Run(cancel)
				close(done)
			}()

			scr.InjectKey(k.key, k.r, tcell.ModNone)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
				t.Fatal("quit key did not cancel")
			}

			s.Close()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Run did not return after Close")
			}
		})
	}
}

func TestOtherKeysDoNotCancel(t *testing.T) {
	scr := simScreen(t, 10, 4)
	s := NewWithScreen(scr, []render.Device{{Addr: "a", Count: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(cancel)
		close(done)
	}()

	scr.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	scr.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, ctx.Err())

	s.Close()
	<-done
}

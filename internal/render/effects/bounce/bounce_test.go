package bounce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/cheevolights/internal/render"
)

func TestTraceTenLEDsSpeedTen(t *testing.T) {
	s := newState(10)
	assert.Equal(t, state{count: 10, posA: 0, posB: 9, dirA: 1, dirB: -1}, *s)

	s.advance(10)
	// crossing flips both, neither end clamp applies
	assert.Equal(t, state{count: 10, posA: 10, posB: -1, dirA: -1, dirB: 1}, *s)

	s.advance(10)
	// back at the ends, clamps push both inward again
	assert.Equal(t, state{count: 10, posA: 0, posB: 9, dirA: 1, dirB: -1}, *s)
}

func TestOffStripMarkersAreNotRendered(t *testing.T) {
	s := &state{count: 10, posA: 10, posB: -1, dirA: -1, dirB: 1}
	f := render.NewFrame(10)
	f[3] = render.Color{R: 1}
	s.render(f, DefaultPalette, 0.8)
	assert.False(t, f.Lit(), "frame should be cleared and markers skipped: %+v", f)
}

func TestFlipAndClampRules(t *testing.T) {
	for _, tc := range []struct{ count, speed int }{{10, 1}, {10, 3}, {209, 10}, {174, 10}, {7, 4}, {2, 5}} {
		s := newState(tc.count)
		for step := 0; step < 500; step++ {
			prev := *s
			s.advance(tc.speed)
			posA := prev.posA + prev.dirA*tc.speed
			posB := prev.posB + prev.dirB*tc.speed
			require.Equal(t, posA, s.posA)
			require.Equal(t, posB, s.posB)

			wantA, wantB := prev.dirA, prev.dirB
			if posA >= posB {
				wantA, wantB = -wantA, -wantB
			}
			if posA <= 0 {
				wantA = 1
			}
			if posB >= tc.count-1 {
				wantB = -1
			}
			require.Equal(t, wantA, s.dirA, "count=%d speed=%d step=%d", tc.count, tc.speed, step)
			require.Equal(t, wantB, s.dirB, "count=%d speed=%d step=%d", tc.count, tc.speed, step)
		}
	}
}

func TestFramesMatchDeviceCounts(t *testing.T) {
	devices := []render.Device{{Addr: "a", Count: 209}, {Addr: "b", Count: 174}, {Addr: "c", Count: 1}}
	anim := New(Name, DefaultConfig()).Start(devices)
	for i := 0; i < 100; i++ {
		frames, delay, done := anim.Step()
		require.False(t, done)
		require.Zero(t, delay)
		for _, d := range devices {
			f := frames[d.Addr]
			require.Len(t, f, d.Count)
			lit := 0
			for _, c := range f {
				if !c.IsBlack() {
					lit++
				}
			}
			require.LessOrEqual(t, lit, 2)
		}
	}
}

func TestFirstFrameColors(t *testing.T) {
	devices := []render.Device{{Addr: "a", Count: 10}}
	frames, _, _ := New(Name, DefaultConfig()).Start(devices).Step()
	f := frames["a"]
	// pos 0 -> gold, pos 9 -> white (9 mod 4 == 1), both at 0.8
	assert.Equal(t, render.Color{R: 204, G: 172, B: 0}, f[0])
	assert.Equal(t, render.Color{R: 204, G: 204, B: 204}, f[9])
	for i := 1; i < 9; i++ {
		assert.Equal(t, render.Black, f[i])
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	b := New("x", Config{Brightness: 1})
	assert.Equal(t, 10, b.Config().Speed)
	assert.Equal(t, DefaultPalette, b.Config().Palette)
	assert.Equal(t, "x", b.Name())
}

package solid

import (
	"testing"
	"time"

	"github.com/coreman2200/cheevolights/internal/render"
)

func TestSolidFillsAndFinishes(t *testing.T) {
	s := New("solid", render.Color{R: 1})
	if !s.ApplyPreset("blue") {
		t.Fatal("blue preset not recognised")
	}
	devices := []render.Device{{Addr: "a", Count: 4}, {Addr: "b", Count: 2}}
	frames, delay, done := s.Start(devices).Step()
	if !done || delay != 0 {
		t.Fatalf("expected single finished frame, got delay=%v done=%v", delay, done)
	}
	for _, d := range devices {
		f := frames[d.Addr]
		if len(f) != d.Count {
			t.Fatalf("device %s: length %d, want %d", d.Addr, len(f), d.Count)
		}
		for _, c := range f {
			if c != (render.Color{B: 255}) {
				t.Fatalf("expected blue, got %+v", c)
			}
		}
	}
}

func TestSolidHoldRepeats(t *testing.T) {
	s := New("solid", render.Color{G: 9})
	if s.ApplyPreset("nope") {
		t.Fatal("unknown preset reported as applied")
	}
	s.Hold = time.Second
	_, delay, done := s.Start([]render.Device{{Addr: "a", Count: 1}}).Step()
	if done || delay != time.Second {
		t.Fatalf("expected repeating frame, got delay=%v done=%v", delay, done)
	}
	if s.Color() != (render.Color{G: 9}) {
		t.Fatalf("unknown preset changed color to %+v", s.Color())
	}
}

func TestEveryPresetApplies(t *testing.T) {
	s := New("solid", render.Color{R: 1, G: 2, B: 3})
	for _, p := range s.Presets() {
		if !s.ApplyPreset(p) {
			t.Fatalf("preset %q not applied", p)
		}
	}
	if s.Color() != render.Black {
		t.Fatalf("last preset is Black, got %+v", s.Color())
	}
}

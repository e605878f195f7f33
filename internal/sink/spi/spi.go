// Package spi drives locally attached WS281x strips through periph.io's
// NRZ-over-SPI encoder.
package spi

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/cheevolights/internal/render"
)

const (
	DriverName  = "spi"
	DefaultFreq = 2500 * physic.KiloHertz
)

// Opener opens an SPI port by name; "" selects the first available port.
type Opener func(name string) (spi.PortCloser, error)

type strip struct {
	port spi.PortCloser
	dev  *nrzled.Dev
	img  *image.NRGBA
}

// Sink opens one strip per device address on first use. A device whose port
// fails to open is remembered and skipped from then on.
type Sink struct {
	Freq physic.Frequency
	Open Opener

	mu     sync.Mutex
	strips map[string]*strip
	failed map[string]bool
}

var initOnce sync.Once

func hostInit() {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("periph host init failed")
		}
	})
}

func New(freq physic.Frequency) *Sink {
	if freq <= 0 {
		freq = DefaultFreq
	}
	return &Sink{
		Freq:   freq,
		Open:   spireg.Open,
		strips: map[string]*strip{},
		failed: map[string]bool{},
	}
}

func (s *Sink) lookup(dev render.Device) *strip {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.strips[dev.Addr]; ok {
		return st
	}
	if s.failed[dev.Addr] {
		return nil
	}
	st, err := s.open(dev)
	if err != nil {
		log.Warn().Err(err).Str("addr", dev.Addr).Int("count", dev.Count).Msg("spi strip unavailable; frames will be dropped")
		s.failed[dev.Addr] = true
		return nil
	}
	s.strips[dev.Addr] = st
	return st
}

func (s *Sink) open(dev render.Device) (*strip, error) {
	hostInit()
	p, err := s.Open(dev.Addr)
	if err != nil {
		return nil, errors.Wrap(err, "open spi port")
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: dev.Count, Channels: 3, Freq: s.Freq})
	if err != nil {
		_ = p.Close()
		return nil, errors.Wrap(err, "nrzled")
	}
	return &strip{port: p, dev: d, img: image.NewNRGBA(image.Rect(0, 0, dev.Count, 1))}, nil
}

func (s *Sink) Send(_ context.Context, dev render.Device, f render.Frame) {
	st := s.lookup(dev)
	if st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := st.img.Bounds().Dx()
	for i := 0; i < w; i++ {
		c := render.Black
		if i < len(f) {
			c = f[i]
		}
		st.img.SetNRGBA(i, 0, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}
	if err := st.dev.Draw(st.img.Bounds(), st.img, image.Point{}); err != nil {
		log.Debug().Err(err).Str("addr", dev.Addr).Msg("spi frame dropped")
	}
}

// Close blanks and releases every opened strip.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for addr, st := range s.strips {
		if err := st.dev.Halt(); err != nil && first == nil {
			first = errors.Wrapf(err, "halt %s", addr)
		}
		if err := st.port.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s", addr)
		}
		delete(s.strips, addr)
	}
	return first
}

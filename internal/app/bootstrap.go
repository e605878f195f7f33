package app

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/cheevolights/internal/config"
	diag "github.com/coreman2200/cheevolights/internal/diagnostics"
	"github.com/coreman2200/cheevolights/internal/preview"
	"github.com/coreman2200/cheevolights/internal/render"
	"github.com/coreman2200/cheevolights/internal/render/effects/bounce"
	"github.com/coreman2200/cheevolights/internal/render/effects/explosion"
	"github.com/coreman2200/cheevolights/internal/render/effects/solid"
	"github.com/coreman2200/cheevolights/internal/sink"
	spisink "github.com/coreman2200/cheevolights/internal/sink/spi"
	"github.com/coreman2200/cheevolights/internal/sink/wled"
	"github.com/coreman2200/cheevolights/internal/supervisor"
)

// SolidName is the registry key for the fallback-color fill.
const SolidName = "solid"

type Core struct {
	Devices []render.Device
	WLED    *wled.Client
	SPI     *spisink.Sink
	Router  *sink.Router
	Hub     *preview.Hub // nil unless Options.Preview
	Eng     *render.Engine
	Reg     *render.Registry
	Sup     *supervisor.Supervisor
}

type Options struct {
	Preview bool
	// Routes adds or replaces sinks by driver name, e.g. a terminal preview.
	Routes map[string]sink.Sink
	// DefaultDriver handles devices with no driver set. Empty means wled.
	DefaultDriver string
}

// Build wires config into a ready supervisor. Nothing touches the network
// until an effect starts.
func Build(cfg *config.Config, opts Options) (*Core, error) {
	devices := cfg.RenderDevices()
	if len(devices) == 0 {
		return nil, errors.New("no devices configured")
	}

	reg, err := Registry(cfg)
	if err != nil {
		return nil, err
	}

	c := &Core{
		Devices: devices,
		WLED:    wled.New(cfg.Sink.Timeout),
		SPI:     spisink.New(physic.Frequency(cfg.Sink.SPIFreqKHz) * physic.KiloHertz),
		Reg:     reg,
	}

	def := opts.DefaultDriver
	if def == "" {
		def = wled.DriverName
	}
	c.Router = sink.NewRouter(def)
	c.Router.Handle(wled.DriverName, c.WLED)
	c.Router.Handle(spisink.DriverName, c.SPI)
	for name, s := range opts.Routes {
		c.Router.Handle(name, s)
	}

	var out sink.Sink = c.Router
	var listener diag.Listener
	if opts.Preview {
		c.Hub = preview.NewHub(nil)
		out = sink.Tee(c.Router, c.Hub)
		listener = c.Hub.PushDiag
	}

	c.Eng, err = render.NewEngine(devices, sink.NewDispatcher(out))
	if err != nil {
		return nil, err
	}

	supOpts := []supervisor.Option{supervisor.WithDiagnostics(listener)}
	fill, ok, err := fallbackFill(cfg)
	if err != nil {
		return nil, err
	}
	if ok {
		col := fill.Color()
		supOpts = append(supOpts, supervisor.WithRestorer(supervisor.RestoreFunc(func(ctx context.Context) {
			log.Info().Str("color", col.Hex()).Msg("restoring fallback color")
			c.WLED.Restore(ctx, devices, col)
		})))
	}
	c.Sup = supervisor.New(c.Eng, reg, supOpts...)
	if c.Hub != nil {
		c.Hub.SetStatus(c.Sup)
	}
	return c, nil
}

// Registry builds the effect set from the effects section of cfg.
func Registry(cfg *config.Config) (*render.Registry, error) {
	bp, err := render.ParsePalette(cfg.Effects.Bounce.Palette)
	if err != nil {
		return nil, errors.Wrap(err, bounce.Name+" palette")
	}
	ep, err := render.ParsePalette(cfg.Effects.Explosion.Palette)
	if err != nil {
		return nil, errors.Wrap(err, explosion.Name+" palette")
	}

	b := cfg.Effects.Bounce
	e := cfg.Effects.Explosion
	reg := render.NewRegistry()
	reg.Register(bounce.New(bounce.Name, bounce.Config{
		Speed:      b.MoveSpeed,
		FrameDelay: b.FrameDelay,
		Brightness: b.Brightness,
		Palette:    bp,
	}))
	reg.Register(explosion.New(explosion.Name, explosion.Config{
		Speed:      e.Speed,
		BlastDelay: e.BlastDelay,
		FadeDelay:  e.FadeDelay,
		Brightness: e.Brightness,
		FadeChance: e.FadeChance,
		Palette:    ep,
	}))

	fill, _, err := fallbackFill(cfg)
	if err != nil {
		return nil, err
	}
	reg.Register(fill)
	return reg, nil
}

// fallbackFill resolves fallback_color, either a preset name or "#rrggbb".
// ok is false when no fallback is configured; the fill is then plain red.
func fallbackFill(cfg *config.Config) (fill *solid.Solid, ok bool, err error) {
	fill = solid.New(SolidName, render.Color{R: 255})
	if cfg.FallbackColor == "" {
		return fill, false, nil
	}
	if fill.ApplyPreset(cfg.FallbackColor) {
		return fill, true, nil
	}
	col, _, err := cfg.Fallback()
	if err != nil {
		return nil, false, errors.Wrapf(err, "fallback_color: want #rrggbb or one of %s", strings.Join(fill.Presets(), ", "))
	}
	return solid.New(SolidName, col), true, nil
}

// Close releases local hardware.
func (c *Core) Close() error {
	c.Sup.Stop()
	_ = c.Sup.Wait(context.Background())
	return c.SPI.Close()
}

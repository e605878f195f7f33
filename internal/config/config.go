package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/cheevolights/internal/render"
	"github.com/coreman2200/cheevolights/internal/sequence"
)

type Device struct {
	Addr   string `yaml:"addr"`            // WLED host[:port], or SPI port name for driver "spi"
	Count  int    `yaml:"count"`           // LEDs on the strip
	Driver string `yaml:"driver,omitempty"` // "wled" (default) | "spi"
}

type Bounce struct {
	MoveSpeed  int           `yaml:"move_speed"`
	FrameDelay time.Duration `yaml:"frame_delay"`
	Brightness float64       `yaml:"brightness"`
	Palette    []string      `yaml:"palette,omitempty"`
}

type Explosion struct {
	Speed      int           `yaml:"speed"`
	BlastDelay time.Duration `yaml:"blast_delay"`
	FadeDelay  time.Duration `yaml:"fade_delay"`
	Brightness float64       `yaml:"brightness"`
	FadeChance float64       `yaml:"fade_chance"`
	Palette    []string      `yaml:"palette,omitempty"`
}

type Effects struct {
	Bounce    Bounce    `yaml:"dual_chase_bounce"`
	Explosion Explosion `yaml:"explosion_pulse"`
}

type Sink struct {
	Timeout    time.Duration `yaml:"timeout"`      // per-frame network timeout
	SPIFreqKHz int           `yaml:"spi_freq_khz"` // NRZ bit clock for local strips
}

type Preview struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type Config struct {
	Devices       []Device         `yaml:"devices"`
	Sink          Sink             `yaml:"sink"`
	Effects       Effects          `yaml:"effects"`
	Celebration   sequence.Program `yaml:"celebration"`
	FallbackColor string           `yaml:"fallback_color"` // "#rrggbb" or a solid preset name, restored after a celebration; empty disables
	Preview       Preview          `yaml:"preview"`
}

// Default mirrors the stock two-strip setup.
func Default() *Config {
	return &Config{
		Devices: []Device{
			{Addr: "192.168.1.124", Count: 209},
			{Addr: "192.168.1.69", Count: 174},
		},
		Sink: Sink{Timeout: 300 * time.Millisecond, SPIFreqKHz: 2500},
		Effects: Effects{
			Bounce: Bounce{MoveSpeed: 10, Brightness: 0.8},
			Explosion: Explosion{
				Speed:      10,
				BlastDelay: 500 * time.Microsecond,
				FadeDelay:  50 * time.Millisecond,
				Brightness: 1.0,
				FadeChance: 0.1,
			},
		},
		Celebration:   sequence.Single("dual_chase_bounce", 5*time.Second),
		FallbackColor: "#ff0000",
		Preview:       Preview{Addr: ":8080"},
	}
}

// Load reads path over the defaults; keys absent from the file keep their default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, b, 0644), "write config")
}

// RenderDevices converts the configured devices for the engine.
func (c *Config) RenderDevices() []render.Device {
	out := make([]render.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		out = append(out, render.Device{Addr: d.Addr, Count: d.Count, Driver: d.Driver})
	}
	return out
}

// Fallback parses FallbackColor as hex. ok is false when it is empty.
// Preset names are resolved by the caller.
func (c *Config) Fallback() (col render.Color, ok bool, err error) {
	if c.FallbackColor == "" {
		return render.Black, false, nil
	}
	p, err := render.ParsePalette([]string{c.FallbackColor})
	if err != nil {
		return render.Black, false, err
	}
	return p[0], true, nil
}

// effectsim plays effects in the terminal instead of on the strips.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/cheevolights/internal/app"
	"github.com/coreman2200/cheevolights/internal/config"
	"github.com/coreman2200/cheevolights/internal/sequence"
	"github.com/coreman2200/cheevolights/internal/sink"
	"github.com/coreman2200/cheevolights/internal/term"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml (devices and effect tuning)")
		effect     = flag.String("effect", "", "effect to play (default: the configured celebration)")
		duration   = flag.Duration("duration", 0, "how long -effect runs (0 = until it finishes or q is pressed)")
		list       = flag.Bool("list", false, "list effects and exit")
	)
	flag.Parse()

	// the terminal owns stdout; keep logs to warnings on stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.FallbackColor = ""
	for i := range cfg.Devices {
		cfg.Devices[i].Driver = term.DriverName
	}

	if *list {
		reg, err := app.Registry(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("effects")
		}
		for _, n := range reg.List() {
			fmt.Println(n)
		}
		return
	}

	scr, err := term.New(cfg.RenderDevices())
	if err != nil {
		log.Fatal().Err(err).Msg("terminal")
	}
	core, err := app.Build(cfg, app.Options{
		DefaultDriver: term.DriverName,
		Routes:        map[string]sink.Sink{term.DriverName: scr},
	})
	if err != nil {
		scr.Close()
		log.Fatal().Err(err).Msg("setup failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go scr.Run(cancel)

	prog := cfg.Celebration
	if *effect != "" {
		prog = sequence.Single(*effect, *duration)
	}
	err = core.Sup.Celebrate(ctx, prog)
	_ = core.Close()
	scr.Close()
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "effectsim:", err)
		os.Exit(1)
	}
}

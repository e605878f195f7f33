package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/cheevolights/internal/app"
	"github.com/coreman2200/cheevolights/internal/config"
	"github.com/coreman2200/cheevolights/internal/render"
	"github.com/coreman2200/cheevolights/internal/sequence"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		effect      = flag.String("effect", "", "play a single effect instead of the configured celebration")
		duration    = flag.Duration("duration", 5*time.Second, "how long -effect runs (0 = until it finishes)")
		programPath = flag.String("program", "", "path to a celebration program (YAML or JSON)")
		addr        = flag.String("addr", "", "preview HTTP listen address (overrides config)")
		withPreview = flag.Bool("preview", false, "serve the browser preview")
		stdin       = flag.Bool("stdin", false, "celebrate once per line read from stdin; a line naming an effect plays that effect")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}

	prog := cfg.Celebration
	if *programPath != "" {
		if prog, err = loadProgram(*programPath); err != nil {
			log.Fatal().Err(err).Msg("program")
		}
	}
	if *effect != "" {
		prog = sequence.Single(*effect, *duration)
	}

	core, err := app.Build(cfg, app.Options{Preview: *withPreview || cfg.Preview.Enabled})
	if err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()
	log.Info().Strs("devices", render.Addrs(core.Devices)).Strs("effects", core.Reg.List()).Msg("ready")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if core.Hub != nil {
		listen := firstNonEmpty(*addr, cfg.Preview.Addr, ":8080")
		go func() {
			if err := core.Hub.Serve(ctx, listen); err != nil {
				log.Error().Err(err).Msg("preview server")
			}
		}()
	}

	if *stdin {
		runTriggers(ctx, core.Sup, core.Reg.Has, prog, *duration, os.Stdin)
		return
	}
	if err := core.Sup.Celebrate(ctx, prog); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("celebration")
	}
}

func loadProgram(path string) (sequence.Program, error) {
	var p sequence.Program
	b, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "read program")
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, errors.Wrapf(err, "parse %s", path)
	}
	return p, nil
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

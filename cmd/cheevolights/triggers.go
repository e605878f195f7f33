package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/cheevolights/internal/sequence"
)

type celebrator interface {
	Celebrate(ctx context.Context, prog sequence.Program) error
}

// runTriggers starts a celebration for every line read from r. A new line
// cuts the running celebration short. A line that names a known effect plays
// just that effect for d; anything else plays prog. On EOF the last
// celebration is allowed to finish.
func runTriggers(ctx context.Context, c celebrator, known func(string) bool, prog sequence.Program, d time.Duration, r io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := context.CancelFunc(func() {})
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			p := prog
			if line != "" && known(line) {
				p = sequence.Single(line, d)
			}
			cancel()
			wg.Wait()

			var cctx context.Context
			cctx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				log.Info().Str("trigger", line).Int("steps", len(p.Steps)).Msg("celebrating")
				if err := c.Celebrate(cctx, p); err != nil && cctx.Err() == nil {
					log.Error().Err(err).Msg("celebration")
				}
			}()
		}
	}
}

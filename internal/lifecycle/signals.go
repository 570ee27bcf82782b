// Package lifecycle turns external termination requests into a
// cooperative stop signal for the capture loop.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// NotifyShutdown returns a context canceled on the first SIGINT or
// SIGTERM. The transition is logged exactly once; repeated signals are
// absorbed. In-flight work is never aborted — the loop observes the
// cancellation at its wait boundary.
func NotifyShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	var once sync.Once
	go func() {
		for sig := range ch {
			once.Do(func() {
				log.Info().Str("signal", sig.String()).Msg("termination signal received; stopping")
				cancel()
			})
		}
	}()
	return ctx, cancel
}

package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Canceller is the cancellation handle of the deployment orchestrator
type Canceller interface {
	Cancel(ctx context.Context) error
}

// ExitCode maps a termination signal to a process exit status
func ExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok && s > 0 {
		return 128 + int(s)
	}
	return 1
}

// WatchSignals cancels the deployment and exits when SIGINT or SIGTERM
// arrives. The returned function stops watching.
func WatchSignals(c Canceller, timeout time.Duration, exit func(int), logger zerolog.Logger) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	stop := watch(sigChan, c, timeout, exit, logger)
	return func() {
		signal.Stop(sigChan)
		stop()
	}
}

func watch(sigChan <-chan os.Signal, c Canceller, timeout time.Duration, exit func(int), logger zerolog.Logger) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received termination signal, cancelling deployment")

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			if err := c.Cancel(ctx); err != nil {
				logger.Warn().Err(err).Msg("Cancellation did not complete")
			}
			cancel()

			exit(ExitCode(sig))
		case <-done:
		}
	}()

	// Stopping waits for an in-progress cancellation, so the caller cannot
	// exit underneath it.
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}

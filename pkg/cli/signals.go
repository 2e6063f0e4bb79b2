package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext derives a context that is cancelled when SIGINT or
// SIGTERM arrives. The returned channel reports which signal it was, so
// callers can log it before draining. stop unregisters the handler and
// cancels the context; a second signal after stop falls through to the
// default disposition and kills the process.
func ShutdownContext(parent context.Context) (ctx context.Context, signals <-chan os.Signal, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	notify := make(chan os.Signal, 1)
	signal.Notify(notify, os.Interrupt, syscall.SIGTERM)

	received := make(chan os.Signal, 1)
	go func() {
		select {
		case sig := <-notify:
			received <- sig
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, received, func() {
		signal.Stop(notify)
		cancel()
	}
}

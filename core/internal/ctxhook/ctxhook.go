// Package ctxhook runs a callback when a context ends.
package ctxhook

import "context"

// OnDone calls onContextDone once ctx is done, unless the returned channel is
// closed first. Close the channel to release the watcher goroutine.
func OnDone(ctx context.Context, onContextDone func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			onContextDone()
		case <-done:
		}
	}()
	return done
}

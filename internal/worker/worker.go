// Package worker provides the channel-draining helper the envelope
// ingestor's mutation watcher runs on.
package worker

import "context"

// ChannelLoop processes items from a channel until context is cancelled or stop channel is closed.
func ChannelLoop[T any](ctx context.Context, stopCh <-chan struct{}, ch <-chan T, fn func(ctx context.Context, item T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case item, ok := <-ch:
			if !ok {
				return
			}
			fn(ctx, item)
		}
	}
}

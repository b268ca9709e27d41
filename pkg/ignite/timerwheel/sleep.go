package timerwheel

import (
	"context"
	"time"
)

// Sleep blocks the calling goroutine until d elapses or ctx is canceled,
// using the Wheel instead of a dedicated time.Timer. This is the
// cooperative-sleep primitive request handlers call when they need to
// pace themselves (rate limiting, retry backoff) without tying up a
// timer per request — the Go rendering of the spec's "suspend task,
// resume on timer fire" yield.
func Sleep(ctx context.Context, w *Wheel, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	handle, done := w.Add(d)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.Del(handle)
		return ctx.Err()
	}
}

package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Retry calls fn until it succeeds, the context is done or attempts errors
// have been returned. Network timeouts don't count as attempts.
func Retry(ctx context.Context, log func(v ...interface{}), wait time.Duration, attempts int, fn func() error) error {
	var nerr int
	tick, update, stop := ticker(wait)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			tick = update
		}
		err := fn()
		if err == nil {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		if errors.Is(err, ErrUnsupported) || errors.Is(err, ErrMissingTarget) || errors.Is(err, ErrOrderCanceled) {
			return err
		}
		nerr++
		if nerr >= attempts {
			return fmt.Errorf("exchange: giving up after %d attempts: %w", nerr, err)
		}
		log(err, "retrying...")
	}
}

func ticker(wait time.Duration) (<-chan time.Time, <-chan time.Time, func()) {
	// Don't wait ticker time on first run
	closedTick := make(chan time.Time)
	close(closedTick)
	tick := (<-chan time.Time)(closedTick)
	ticker := time.NewTicker(wait)
	return tick, ticker.C, ticker.Stop
}

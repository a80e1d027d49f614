package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const maxRetryDelay = 30 * time.Second

type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

func (p retryPolicy) normalize() retryPolicy {
	if p.maxRetries < 0 {
		p.maxRetries = 0
	}
	if p.baseDelay <= 0 {
		p.baseDelay = 100 * time.Millisecond
	}
	return p
}

// do runs fn until it succeeds, the attempts run out or ctx is done. The
// delay doubles after each failure up to maxRetryDelay. Cancellation of ctx
// itself is never retried.
func (p retryPolicy) do(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) error {
	p = p.normalize()
	delay := p.baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt > p.maxRetries {
			if attempt == 1 {
				return err
			}
			return fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
		}
		logger.Warn("rpc call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

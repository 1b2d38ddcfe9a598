// Package retry runs upstream calls with exponential backoff. Every live
// provider call goes through Do; mock paths never do.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"syscall"
	"time"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/pkg/httpclient"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 250 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnRetry is called before each backoff sleep with the attempt number
	// that just failed.
	OnRetry func(attempt int)

	// sleep is swapped out by tests to record the schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op with exponential backoff. Transient failures are retried up to
// MaxAttempts; everything else fails on the first attempt with the original
// error. Budget exhaustion and context expiry surface as
// connector.ErrUpstreamUnavailable.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%w: %w", connector.ErrUpstreamUnavailable, err)
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !Transient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt)
		}

		backoff := p.BaseDelay << (attempt - 1)
		if backoff > p.MaxDelay {
			backoff = p.MaxDelay
		}
		// Half fixed, half random, so concurrent callers spread out.
		jittered := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
		if err := sleep(ctx, jittered); err != nil {
			return zero, fmt.Errorf("%w: %w", connector.ErrUpstreamUnavailable, err)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", connector.ErrUpstreamUnavailable, p.MaxAttempts, lastErr)
}

var errTransient = errors.New("transient")

// MarkTransient wraps err so the executor will retry it.
func MarkTransient(err error) error {
	return fmt.Errorf("%w: %w", errTransient, err)
}

// Transient reports whether an error is worth retrying: upstream 5xx/429,
// timeouts, dropped connections, or anything wrapped by MarkTransient.
// Everything else is permanent, including other 4xx responses.
func Transient(err error) bool {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	return errors.Is(err, errTransient)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

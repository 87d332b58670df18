package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type permanentError struct{ error }

func (e permanentError) Unwrap() error { return e.error }

// Permanent marks err as not worth retrying; Retry returns it unwrapped right away.
func Permanent(err error) error { return permanentError{err} }

// Retry calls f until it succeeds, at most 1+retries times. The pause between attempts starts
// at d and doubles after every failure. Failed attempts are logged at WARN.
func Retry[T any](ctx context.Context, retries int, d time.Duration, f func(context.Context) (T, error)) (T, error) {
	var v T
	var err error
	for i := 0; ; i++ {
		var p permanentError
		if v, err = f(ctx); err == nil {
			return v, nil
		} else if errors.As(err, &p) {
			return v, p.error
		} else if i == retries {
			break
		}
		Warnf(ctx, "attempt %d/%d failed: %s", i+1, retries+1, err)
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return *new(T), ctx.Err()
		case <-t.C:
			d *= 2
		}
	}
	return v, fmt.Errorf("max retries reached: %w", err)
}

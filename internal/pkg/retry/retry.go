// Package retry re-runs idempotent store reads on transient failures.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/dberrors"
)

const (
	defaultMaxElapsed     = 3 * time.Second
	defaultInitialBackoff = 50 * time.Millisecond
)

// Policy configures read retries. The zero value uses the defaults.
type Policy struct {
	MaxElapsed time.Duration
	Initial    time.Duration
}

func (p Policy) backoff() backoff.BackOff {
	// BackOff implementations are stateful; build a fresh one per call
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultInitialBackoff
	bo.MaxElapsedTime = defaultMaxElapsed
	if p.Initial > 0 {
		bo.InitialInterval = p.Initial
	}
	if p.MaxElapsed > 0 {
		bo.MaxElapsedTime = p.MaxElapsed
	}
	return bo
}

// Retryable reports whether err is a store failure worth repeating. Domain
// errors such as NotFound are never retried.
func Retryable(err error) bool {
	if err == nil || !errors.Is(err, apperrors.ErrStoreFailure) {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || dberrors.IsTransient(err)
}

// Read runs op until it succeeds, fails permanently or the policy gives up.
// It must only wrap operations without side effects.
func Read[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := backoff.Retry(func() error {
		v, err := op(ctx)
		if err != nil {
			if Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = v
		return nil
	}, backoff.WithContext(p.backoff(), ctx))
	return out, err
}

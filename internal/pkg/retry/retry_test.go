package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

var fast = Policy{Initial: time.Millisecond, MaxElapsed: 200 * time.Millisecond}

func TestReadRetriesTimeouts(t *testing.T) {
	calls := 0
	got, err := Read(context.Background(), fast, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, apperrors.NewStoreFailure("read", context.DeadlineExceeded)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestReadDoesNotRetryDomainErrors(t *testing.T) {
	calls := 0
	_, err := Read(context.Background(), fast, func(ctx context.Context) (string, error) {
		calls++
		return "", apperrors.NewNotFoundError("request not found")
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(apperrors.NewInvalidStateError("x")))
	assert.False(t, Retryable(context.DeadlineExceeded))
	assert.True(t, Retryable(apperrors.NewStoreFailure("op", context.DeadlineExceeded)))
}

package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	calls := 0
	err := policy.run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return apperrors.NewOrchestratorUnavailable("daemon down", nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	calls := 0
	err := policy.run(context.Background(), func() error {
		calls++
		return apperrors.NewOrchestratorUnavailable("daemon down", nil)
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorUnavailable))
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentFailure(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Millisecond}
	calls := 0
	err := policy.run(context.Background(), func() error {
		calls++
		return apperrors.NewOrchestratorRejected("bad image", nil)
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorRejected))
	assert.Equal(t, 1, calls, "rejections must not be retried")
}

func TestRetryZeroAttemptsStillRunsOnce(t *testing.T) {
	policy := RetryPolicy{}
	calls := 0
	err := policy.run(context.Background(), func() error {
		calls++
		return errors.New("plain failure")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 50, InitialBackoff: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := policy.run(ctx, func() error {
		calls++
		cancel()
		return apperrors.NewOrchestratorUnavailable("daemon down", nil)
	})
	require.Error(t, err)
	assert.Less(t, calls, 50)
}

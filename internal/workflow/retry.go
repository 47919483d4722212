package workflow

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// RetryPolicy bounds how often a transient runtime failure is retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// run executes fn, retrying with exponential backoff only while the failure is
// classified as unavailable. Caller mistakes and rejections surface immediately.
func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		bo.InitialInterval = p.InitialBackoff
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !apperrors.Unavailable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

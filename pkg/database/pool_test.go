package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := range 3 {
		base := defaultRetryBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitterFraction))
		hi := time.Duration(float64(base) * (1 + retryJitterFraction))

		for range 20 {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	sqlErr := errors.New("syntax error at or near")

	err := retry(context.Background(), nil, "run migrations", isConnectionError, func() error {
		calls++
		return sqlErr
	})

	assert.ErrorIs(t, err, sqlErr)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), nil, "connect", nil, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, nil, "connect", nil, func() error {
		return errors.New("dial tcp 127.0.0.1:5432: connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:5432: connection refused")))
	assert.True(t, isConnectionError(fmt.Errorf("exec: %w", errors.New("connection reset by peer"))))
	assert.True(t, isConnectionError(errors.New("i/o timeout")))
	assert.False(t, isConnectionError(errors.New("syntax error at or near")))
	assert.False(t, isConnectionError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"}))
}

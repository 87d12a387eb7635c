package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptedPing(results ...error) (func(context.Context) *redis.StatusCmd, *int) {
	calls := 0
	return func(ctx context.Context) *redis.StatusCmd {
		cmd := redis.NewStatusCmd(ctx, "ping")
		if calls < len(results) && results[calls] != nil {
			cmd.SetErr(results[calls])
		}
		calls++
		return cmd
	}, &calls
}

func TestPingWithRetryRecovers(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")
	ping, calls := scriptedPing(refused, refused, nil)
	require.NoError(t, pingWithRetry(context.Background(), ping, 5, time.Millisecond, nil))
	assert.Equal(t, 3, *calls)
}

func TestPingWithRetryGivesUp(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")
	ping, calls := scriptedPing(refused, refused, refused)
	err := pingWithRetry(context.Background(), ping, 3, time.Millisecond, nil)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, 3, *calls)
}

func TestPingWithRetryStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ping, calls := scriptedPing(errors.New("connection refused"))
	err := pingWithRetry(ctx, ping, 5, time.Hour, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}

//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pollbook/internal/platform/config"
	"pollbook/pkg/testutil/containers"
)

func TestNew(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)

	client, err := New(context.Background(), config.RedisConfig{URL: rc.Addr, PoolSize: 4})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Health(context.Background()))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "://nope"})
	require.Error(t, err)
}

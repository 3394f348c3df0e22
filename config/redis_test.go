package config

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	rdb, err := ConnectRedis(ctx, RedisConfig{Enabled: false, Address: "127.0.0.1:1"})
	require.NoError(t, err)
	assert.Nil(t, rdb)

	mr := miniredis.RunT(t)
	rdb, err = ConnectRedis(ctx, RedisConfig{Enabled: true, Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.Close()
	_, err = ConnectRedis(ctx, RedisConfig{Enabled: true, Address: mr.Addr()})
	assert.ErrorContains(t, err, "redis ping failed")
}

package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with space", "with_space"},
		{"a:b", "a_b"},
		{"glob*?[x]", "glob___x_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safe(tt.in), tt.in)
	}
}

// TestDeleteByPattern はパターンに一致するキーだけが削除されることを検証します。
func TestDeleteByPattern(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	for i := 0; i < 450; i++ {
		require.NoError(t, rdb.Set(ctx, fmt.Sprintf("tasks:1:%d:10", i), "x", 0).Err())
	}
	require.NoError(t, rdb.Set(ctx, "tasks:10:0:10", "keep", 0).Err())
	require.NoError(t, rdb.Set(ctx, "tasks:2:0:10", "keep", 0).Err())

	require.NoError(t, deleteByPattern(ctx, rdb, "tasks:1:*"))

	keys := mr.Keys()
	assert.ElementsMatch(t, []string{"tasks:10:0:10", "tasks:2:0:10"}, keys)
}

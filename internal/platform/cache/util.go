package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// scanBatch はSCAN1回あたりのヒント件数です。
const scanBatch = 200

// deleteByPattern はSCANでpatternに一致するキーをすべて削除します。
// KEYSと違いサーバーをブロックしません。
func deleteByPattern(ctx context.Context, rdb *redis.Client, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			return nil
		}
	}
}

// safe escapes characters that are problematic for Redis keys and glob patterns.
func safe(s string) string {
	return strings.NewReplacer(
		" ", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"[", "_",
		"]", "_",
	).Replace(s)
}

package util

import (
	"context"
	"fmt"
	"time"

	"github.com/medbook/medbook/config"
	"github.com/redis/go-redis/v9"
)

// AddSessionToUserSet adds the session token to the per-user Redis set and
// refreshes the set TTL so it outlives the longest session it tracks.
func AddSessionToUserSet(userID uint, token string, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	userSetKey := fmt.Sprintf("user_sessions:%d", userID)
	if err := rdb.SAdd(ctx, userSetKey, token).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		return rdb.Expire(ctx, userSetKey, ttl).Err()
	}
	return nil
}

// RemoveSessionTokenFromUserSet removes a single session token from the per-user set.
// If the set becomes empty after removal, it is deleted.
func RemoveSessionTokenFromUserSet(userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	userSetKey := fmt.Sprintf("user_sessions:%d", userID)
	// Atomically remove the token and delete the set if empty
	script := `
		local removed = redis.call('SREM', KEYS[1], ARGV[1])
		if removed > 0 then
			local count = redis.call('SCARD', KEYS[1])
			if count == 0 then
				redis.call('DEL', KEYS[1])
			end
		end
		return removed
	`
	return rdb.Eval(ctx, script, []string{userSetKey}, token).Err()
}

// InvalidateUserSessions deletes all session:<token> keys for the given user and
// removes the per-user set. Best-effort: it will return an error if Redis calls
// fail, but callers may choose to ignore it.
func InvalidateUserSessions(userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	userSetKey := fmt.Sprintf("user_sessions:%d", userID)
	members, err := rdb.SMembers(ctx, userSetKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tok := range members {
		_ = rdb.Del(ctx, fmt.Sprintf("session:%s", tok)).Err()
	}
	return rdb.Del(ctx, userSetKey).Err()
}

// app/seenmw.go
package app

import (
	"time"

	"Gin_postgres_redis_device_tracker/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen 每个用户每个 throttle 周期最多写一次 last_seen_at
func TouchLastSeen(repo *db.Repo, rdb redis.Cmdable, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(CtxUserID)
		if uid == "" {
			c.Next()
			return
		}

		key := "user:lastseen:" + uid
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			_ = repo.TouchUserSeen(c.Request.Context(), uid) // 忽略错误，不阻塞请求
		}
		c.Next()
	}
}

// app/bootstrap.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/logger"
)

// BootstrapFirstAdmin 没有管理员时为 BOOTSTRAP_ADMIN_EMAIL 生成一次性邀请并打印链接。
// 返回邀请链接；无需引导时返回空串。
func BootstrapFirstAdmin(ctx context.Context, cfg Config, repo *db.Repo) (string, error) {
	log := logger.WithComponent("bootstrap")
	if cfg.BootstrapEmail == "" {
		return "", nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil // 已经有管理员，跳过
	}
	// 管理员也可能来自 ADMIN_EMAILS；已注册就不再发邀请
	if _, err := repo.FindUserByUsername(ctx, cfg.BootstrapEmail); err == nil {
		return "", nil
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	if _, err := repo.CreateInvite(ctx, cfg.BootstrapEmail, "Administrator", token, time.Now().Add(24*time.Hour), "bootstrap"); err != nil {
		return "", fmt.Errorf("bootstrap invite: %w", err)
	}

	// 打印邀请链接（直接点开注册）
	link := fmt.Sprintf("%s/login?inviteToken=%s", strings.TrimRight(cfg.WebOrigin, "/"), token)
	log.Info().Str("email", cfg.BootstrapEmail).Msg("no admin found, created an admin invite")
	log.Info().Str("link", link).Msg("open this URL to register the first admin")
	return link, nil
}

package app

import (
	"context"
	"fmt"
	"time"

	"Gin_postgres_redis_device_tracker/cache"
	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/session"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Config Config

	Repo      *db.Repo
	Schedules *cache.ScheduleCache
	Tracker   *tracker.Service

	appSess *session.AppSessionStore
	waSess  *session.Store
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Ceremonies() *session.Store            { return a.waSess }

// New 连接 Postgres 与 Redis 并组装应用。
func New(cfg Config) (*App, error) {
	// --- DB: Postgres ---
	dbConn, err := db.ConnectDB(cfg.DB)
	if err != nil {
		return nil, err
	}

	// --- Redis ---
	rdb, err := dialRedis(cfg)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}

	a, err := Assemble(cfg, dbConn, rdb)
	if err != nil {
		_ = rdb.Close()
		closeDB(dbConn)
		return nil, err
	}
	return a, nil
}

// dialRedis 连接并 ping，失败时关闭客户端
func dialRedis(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rdb, nil
}

func closeDB(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Assemble 在已有连接上组装，测试用 sqlite + miniredis 走这里。
func Assemble(cfg Config, dbConn *gorm.DB, rdb *redis.Client) (*App, error) {
	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Device Tracker Passkeys",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}
	if cfg.AppTTL <= 0 {
		cfg.AppTTL = 24 * time.Hour
	}

	repo := db.NewRepo(dbConn)
	schedules := cache.NewScheduleCache(repo, rdb, cfg.ScheduleCacheTTL)
	svc := tracker.NewService(repo, schedules, repo, tracker.Options{
		Location: cfg.Location,
		Interval: cfg.ReconcileInterval,
	})

	// --- Gin ---
	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())
	useCORS(r, cfg)

	return &App{
		Router: r, DB: dbConn, RDB: rdb, WA: wa, Config: cfg,
		Repo:      repo,
		Schedules: schedules,
		Tracker:   svc,
		appSess:   session.NewAppSessionStore(rdb, cfg.AppTTL),
		waSess:    session.NewStore(rdb, cfg.SessionTTL),
	}, nil
}

// Start 启动后台对账
func (a *App) Start(ctx context.Context) { a.Tracker.Start(ctx) }

func (a *App) Close() {
	a.Tracker.Stop()
	_ = a.RDB.Close()
	closeDB(a.DB)
}

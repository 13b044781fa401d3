package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/logger"
	"Gin_postgres_redis_device_tracker/tracker"
)

// Config 从环境变量读取
type Config struct {
	DB          db.PGConfig
	RedisAddr   string
	RedisPwd    string
	WebOrigin   string
	RPID        string
	RPOrigins   []string
	SessionTTL  time.Duration // WebAuthn challenge
	AppTTL      time.Duration // 登录会话
	AdminEmails []string

	BootstrapEmail string
	Port           string

	// 课表的星期与时刻按此时区解释
	Location          *time.Location
	ReconcileInterval time.Duration
	ScheduleCacheTTL  time.Duration

	Log logger.Config
}

// IsAdminEmail 用户名即邀请邮箱
func (c Config) IsAdminEmail(username string) bool {
	u := strings.ToLower(strings.TrimSpace(username))
	for _, admin := range c.AdminEmails {
		if u == admin {
			return true
		}
	}
	return false
}

func (c Config) SecureCookies() bool { return strings.HasPrefix(c.WebOrigin, "https://") }

func LoadConfig() (Config, error) {
	get := func(k, def string) string {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			return def
		}
		return v
	}
	seconds := func(k string, def int) (time.Duration, error) {
		n, err := strconv.Atoi(get(k, strconv.Itoa(def)))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s: expected a non-negative number of seconds", k)
		}
		return time.Duration(n) * time.Second, nil
	}
	csv := func(s string, lower bool) []string {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if t := strings.TrimSpace(part); t != "" {
				if lower {
					t = strings.ToLower(t)
				}
				out = append(out, t)
			}
		}
		return out
	}

	ttl, err := seconds("SESSION_TTL_SECONDS", 600)
	if err != nil {
		return Config{}, err
	}
	interval, err := seconds("RECONCILE_INTERVAL_SECONDS", int(tracker.DefaultReconcileInterval/time.Second))
	if err != nil {
		return Config{}, err
	}
	if interval == 0 {
		interval = tracker.DefaultReconcileInterval
	}
	cacheTTL, err := seconds("SCHEDULE_CACHE_TTL_SECONDS", 120)
	if err != nil {
		return Config{}, err
	}
	loc, err := time.LoadLocation(get("TIMEZONE", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	logJSON, _ := strconv.ParseBool(get("LOG_JSON", "false"))

	webOrigin := get("WEB_ORIGIN", "http://localhost:5173")
	return Config{
		DB: db.PGConfig{
			Host:     get("DB_HOST", "127.0.0.1"),
			User:     get("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     get("DB_NAME", "devtracker"),
			Port:     get("DB_PORT", "5432"),
		},
		RedisAddr:   get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:    os.Getenv("REDIS_PASSWORD"),
		WebOrigin:   webOrigin,
		RPID:        get("RP_ID", "localhost"),
		RPOrigins:   csv(get("RP_ORIGINS", webOrigin), false),
		SessionTTL:  ttl,
		AppTTL:      24 * time.Hour,
		AdminEmails: csv(os.Getenv("ADMIN_EMAILS"), true), // 例如: "admin@ex.com,ops@ex.com"

		BootstrapEmail: strings.ToLower(get("BOOTSTRAP_ADMIN_EMAIL", "")),
		Port:           get("PORT", "3001"),

		Location:          loc,
		ReconcileInterval: interval,
		ScheduleCacheTTL:  cacheTTL,

		Log: logger.Config{
			Level:      logger.Level(strings.ToLower(get("LOG_LEVEL", "info"))),
			JSONOutput: logJSON,
		},
	}, nil
}

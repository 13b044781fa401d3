package db

import (
	"fmt"
	"time"

	"Gin_postgres_redis_device_tracker/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PGConfig 连接参数（来自环境变量）
type PGConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

func (c PGConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.Name, c.Port,
	)
}

// GormConfig is shared by the postgres connection and the sqlite test
// databases so error translation behaves the same on both.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func ConnectDB(cfg PGConfig) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Credential{}, &models.Invite{},
		&models.Device{}, &models.CheckoutEvent{}, &models.ScheduleSession{},
	); err != nil {
		return err
	}

	// 每个持有人最多同时持有一台设备
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_per_holder
	  ON %s (holder_id)
	  WHERE status <> 'available';
	`, models.DeviceTable, models.DeviceTable)).Error; err != nil {
		return err
	}

	// 对账只扫描借出中的设备
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_checked_out
	  ON %s (status)
	  WHERE status <> 'available';
	`, models.DeviceTable, models.DeviceTable)).Error; err != nil {
		return err
	}

	return nil
}

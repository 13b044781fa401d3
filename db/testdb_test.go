package db

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"Gin_postgres_redis_device_tracker/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestRepo opens a private in-memory sqlite database per test.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)

	conn, err := gorm.Open(sqlite.Open(dsn), GormConfig())
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(conn))
	return NewRepo(conn)
}

func seedUser(t *testing.T, r *Repo, username string) *models.User {
	t.Helper()
	u, err := r.FindOrCreateUser(context.Background(), username, strings.ToUpper(username[:1])+username[1:], uuid.NewString())
	require.NoError(t, err)
	return u
}

func seedDevice(t *testing.T, r *Repo, label string) *models.Device {
	t.Helper()
	d, err := r.CreateDevice(context.Background(), label)
	require.NoError(t, err)
	return d
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Gin_postgres_redis_device_tracker/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestApp(t *testing.T) *App {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), db.GormConfig())
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(conn))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	a, err := Assemble(Config{
		WebOrigin:        "http://localhost:5173",
		RPID:             "localhost",
		RPOrigins:        []string{"http://localhost:5173"},
		SessionTTL:       time.Minute,
		AdminEmails:      []string{"root@example.com"},
		BootstrapEmail:   "boss@example.com",
		Location:         time.UTC,
		ScheduleCacheTTL: time.Minute,
	}, conn, rdb)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestBootstrapFirstAdmin(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	link, err := BootstrapFirstAdmin(ctx, a.Config, a.Repo)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:5173/login?inviteToken="))

	invs, err := a.Repo.ListInvites(ctx, true)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "boss@example.com", invs[0].Email)
	assert.Equal(t, "bootstrap", invs[0].CreatedBy)

	u, err := a.Repo.FindOrCreateUser(ctx, "someone@example.com", "", uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, a.Repo.SetUserAdmin(ctx, u.ID, true))
	link, err = BootstrapFirstAdmin(ctx, a.Config, a.Repo)
	require.NoError(t, err)
	assert.Empty(t, link)
}

func login(t *testing.T, a *App, username string, admin bool) (*http.Cookie, string) {
	t.Helper()
	ctx := context.Background()
	u, err := a.Repo.FindOrCreateUser(ctx, username, "", uuid.NewString())
	require.NoError(t, err)
	if admin {
		require.NoError(t, a.Repo.SetUserAdmin(ctx, u.ID, true))
	}
	sid := uuid.NewString()
	require.NoError(t, a.AppSessions().Create(ctx, sid, u.ID))
	return &http.Cookie{Name: AppSessionCookie, Value: sid}, u.ID
}

func TestAuthAndAdminMiddleware(t *testing.T) {
	a := newTestApp(t)
	a.Router.GET("/me", AuthRequired(a.AppSessions(), a.Repo, a.Config), func(c *gin.Context) {
		c.JSON(http.StatusOK, H{"id": c.GetString(CtxUserID), "admin": c.GetBool(CtxIsAdmin)})
	})
	a.Router.GET("/admin", AuthRequired(a.AppSessions(), a.Repo, a.Config), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(path string, ck *http.Cookie) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if ck != nil {
			req.AddCookie(ck)
		}
		a.Router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do("/me", &http.Cookie{Name: AppSessionCookie, Value: "bogus"}).Code)

	staff, staffID := login(t, a, "staff@example.com", false)
	w := do("/me", staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), staffID)
	assert.Equal(t, http.StatusForbidden, do("/admin", staff).Code)

	admin, _ := login(t, a, "admin@example.com", true)
	assert.Equal(t, http.StatusNoContent, do("/admin", admin).Code)

	root, _ := login(t, a, "root@example.com", false)
	assert.Equal(t, http.StatusNoContent, do("/admin", root).Code)

	// deleted user: session is dropped
	require.NoError(t, a.Repo.DeleteUserByID(context.Background(), staffID))
	assert.Equal(t, http.StatusUnauthorized, do("/me", staff).Code)
	_, err := a.AppSessions().Get(context.Background(), staff.Value)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestTouchLastSeenThrottles(t *testing.T) {
	a := newTestApp(t)
	ck, uid := login(t, a, "staff@example.com", false)
	a.Router.GET("/ping", AuthRequired(a.AppSessions(), a.Repo, a.Config), TouchLastSeen(a.Repo, a.RDB, time.Hour),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(ck)
	a.Router.ServeHTTP(httptest.NewRecorder(), req)

	u, err := a.Repo.FindUserByID(context.Background(), uid)
	require.NoError(t, err)
	require.NotNil(t, u.LastSeenAt)
	first := *u.LastSeenAt

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(ck)
	a.Router.ServeHTTP(httptest.NewRecorder(), req)
	u, err = a.Repo.FindUserByID(context.Background(), uid)
	require.NoError(t, err)
	assert.True(t, u.LastSeenAt.Equal(first))
}

func TestDialRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb, err := dialRedis(Config{RedisAddr: addr})
	assert.Nil(t, rdb)
	assert.ErrorContains(t, err, "redis:")
}

func TestCloseDBReleasesPool(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:close_db?mode=memory"), db.GormConfig())
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())

	closeDB(conn)
	assert.Error(t, sqlDB.Ping())
}

func TestCORSOrigins(t *testing.T) {
	got := corsOrigins(Config{
		WebOrigin: "https://app.example.com",
		RPOrigins: []string{"https://app.example.com", "", "https://kiosk.example.com"},
	})
	assert.Equal(t, []string{"https://app.example.com", "https://kiosk.example.com"}, got)

	a := newTestApp(t)
	a.Router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

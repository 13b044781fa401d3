// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/cache"
	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/logger"
	"Gin_postgres_redis_device_tracker/models"
	"Gin_postgres_redis_device_tracker/session"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Srv struct {
	WA        *webauthn.WebAuthn
	Repo      *db.Repo
	Sess      *session.Store
	AppSess   *session.AppSessionStore
	Tracker   *tracker.Service
	Schedules *cache.ScheduleCache
	Cfg       app.Config

	log zerolog.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:        a.WA,
		Repo:      a.Repo,
		Sess:      a.Ceremonies(),
		AppSess:   a.AppSessions(),
		Tracker:   a.Tracker,
		Schedules: a.Schedules,
		Cfg:       a.Config,
		log:       logger.WithComponent("http"),
	}
}

// --- helpers ---

// statusFor 业务错误 → HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrHolderHasDevice),
		errors.Is(err, tracker.ErrConcurrentModification),
		errors.Is(err, db.ErrLabelTaken),
		errors.Is(err, db.ErrHolderBusy),
		errors.Is(err, db.ErrInviteConsumed):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Srv) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= 500 {
		_ = c.Error(err)
	}
	c.JSON(code, app.H{"error": err.Error()})
}

type caller struct {
	ID          string
	Username    string
	DisplayName string
	IsAdmin     bool
}

// currentUser 读取 AuthRequired 写入的身份
func currentUser(c *gin.Context) (caller, bool) {
	id := c.GetString(app.CtxUserID)
	if id == "" {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return caller{}, false
	}
	return caller{
		ID:          id,
		Username:    c.GetString(app.CtxUsername),
		DisplayName: c.GetString(app.CtxDisplayName),
		IsAdmin:     c.GetBool(app.CtxIsAdmin),
	}, true
}

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：创建会话 + 触发登录快照
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, ip, ua string) error {
	if err := s.Repo.TouchUserLogin(ctx, userID, ip, ua); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("touch login failed") // 不阻塞
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Username }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func fromWaCred(userID string, cred *webauthn.Credential) *models.Credential {
	return &models.Credential{
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func (s *Srv) wrapWAUser(ctx context.Context, u *models.User) (*waUser, error) {
	cs, err := s.Repo.LoadUserCredentials(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}, nil
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.wrapWAUser(ctx, u)
}

func (s *Srv) loadWAUserByUsername(ctx context.Context, username string) (*waUser, error) {
	u, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.wrapWAUser(ctx, u)
}

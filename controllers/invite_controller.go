package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_device_tracker/app"

	"github.com/gin-gonic/gin"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email       string `json:"email" binding:"required,email"`
		DisplayName string `json:"displayName"`
		Expires     int    `json:"expiresDays"` // 默认 1 天
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}
	me, ok := currentUser(c)
	if !ok {
		return
	}

	// 生成一次性 token
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		ic.fail(c, err)
		return
	}
	token := hex.EncodeToString(buf)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Repo.CreateInvite(
		ctx,
		strings.ToLower(in.Email),
		strings.TrimSpace(in.DisplayName),
		token,
		time.Now().AddDate(0, 0, in.Expires),
		me.Username,
	)
	if err != nil {
		ic.fail(c, err)
		return
	}

	// 拼邀请链接（前端登录页带 inviteToken）；邮件投递不在本服务内
	link := strings.TrimRight(ic.Cfg.WebOrigin, "/") + "/login?inviteToken=" + token
	ic.log.Info().Str("email", inv.Email).Int("expires_days", in.Expires).Msg("invite created")

	c.JSON(http.StatusCreated, app.H{
		"token":  token,
		"link":   link,
		"invite": inv,
	})
}

// GET /admin/invites?pending=true
func (ic *InviteController) ListInvites(c *gin.Context) {
	pending := c.Query("pending") == "true"
	invs, err := ic.Repo.ListInvites(c.Request.Context(), pending)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"invites": invs})
}

package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_device_tracker/app"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id：用户信息 + 当前持有的设备
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	ctx := c.Request.Context()
	user, err := uc.Repo.FindUserByID(ctx, id)
	if err != nil {
		uc.fail(c, err)
		return
	}
	held, err := uc.Tracker.DevicesHeldBy(ctx, id)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"user":    user,
		"devices": held,
	})
}

// PUT /api/users/:id/admin {"isAdmin": true}
func (uc *UserController) SetAdmin(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		IsAdmin *bool `json:"isAdmin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if c.GetString(app.CtxUserID) == id && !*in.IsAdmin {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot revoke your own admin role"})
		return
	}
	if err := uc.Repo.SetUserAdmin(c.Request.Context(), id, *in.IsAdmin); err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	me, ok := currentUser(c)
	if !ok {
		return
	}
	// 不允许删除自己，避免锁死
	if me.ID == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}

	ctx := c.Request.Context()
	target, err := uc.Repo.FindUserByID(ctx, id)
	if err != nil {
		uc.fail(c, err)
		return
	}
	if target.IsAdmin || uc.Cfg.IsAdminEmail(target.Username) {
		c.JSON(http.StatusForbidden, app.H{"error": "cannot delete an admin"})
		return
	}

	// 连带删除凭据与课表；仍持有设备时拒绝
	if err := uc.Repo.DeleteUserByID(ctx, id); err != nil {
		uc.fail(c, err)
		return
	}
	if err := uc.Schedules.Invalidate(ctx, id); err != nil {
		uc.log.Warn().Err(err).Str("user_id", id).Msg("schedule cache invalidation failed")
	}
	// 撤销该用户的所有登录会话
	_ = uc.AppSess.RevokeAllForUser(ctx, id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// controllers/device_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/db"

	"github.com/gin-gonic/gin"
)

type DeviceController struct{ *Srv }

func NewDeviceController(s *Srv) *DeviceController { return &DeviceController{Srv: s} }

// GET /api/devices：先对账再列出，列表不会比本次请求更旧
func (dc *DeviceController) ListDevices(c *gin.Context) {
	devices, err := dc.Tracker.ListDevices(c.Request.Context())
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"devices": devices})
}

// GET /api/devices/mine
func (dc *DeviceController) ListMine(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	devices, err := dc.Tracker.DevicesHeldBy(c.Request.Context(), me.ID)
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"devices": devices})
}

// GET /api/devices/:id
func (dc *DeviceController) GetDevice(c *gin.Context) {
	d, err := dc.Tracker.Device(c.Request.Context(), c.Param("id"))
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/devices/:id/checkout：本人借出
func (dc *DeviceController) Checkout(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	d, err := dc.Tracker.Checkout(c.Request.Context(), c.Param("id"), me.ID, me.DisplayName)
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/devices/:id/return：本人归还
func (dc *DeviceController) Return(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	d, err := dc.Tracker.ReturnDevice(c.Request.Context(), c.Param("id"), me.ID, me.DisplayName)
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ===== 管理 =====

// GET /api/admin/devices?q=&status=&page=&size=
func (dc *DeviceController) AdminListDevices(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := dc.Tracker.ReconcileAll(ctx); err != nil {
		dc.fail(c, err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	res, err := dc.Repo.ListDevicesPage(ctx, db.AdminDevicesQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/admin/devices {"label": "..."}
func (dc *DeviceController) CreateDevice(c *gin.Context) {
	var in struct {
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	d, err := dc.Repo.CreateDevice(c.Request.Context(), in.Label)
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// DELETE /api/admin/devices/:id
func (dc *DeviceController) DeleteDevice(c *gin.Context) {
	if err := dc.Repo.DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

type onBehalfReq struct {
	Username string `json:"username" binding:"required"`
}

// POST /api/admin/devices/:id/checkout {"username": "..."}：代借
func (dc *DeviceController) AdminCheckout(c *gin.Context) {
	var in onBehalfReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	u, err := dc.Repo.FindUserByUsername(ctx, in.Username)
	if err != nil {
		dc.fail(c, err)
		return
	}
	d, err := dc.Tracker.Checkout(ctx, c.Param("id"), u.ID, u.DisplayName)
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/admin/devices/:id/return {"username": "..."}：代还
func (dc *DeviceController) AdminReturn(c *gin.Context) {
	var in onBehalfReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	u, err := dc.Repo.FindUserByUsername(ctx, in.Username)
	if err != nil {
		dc.fail(c, err)
		return
	}
	d, err := dc.Tracker.ReturnDevice(ctx, c.Param("id"), u.ID, u.DisplayName)
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/admin/reconcile：立即跑一轮对账
func (dc *DeviceController) Reconcile(c *gin.Context) {
	rep, err := dc.Tracker.ReconcileAll(c.Request.Context())
	if err != nil {
		dc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"report": rep,
		"errors": rep.ErrorViews(),
	})
}

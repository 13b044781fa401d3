package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/models"

	"github.com/gin-gonic/gin"
)

type HistoryController struct{ *Srv }

func NewHistoryController(s *Srv) *HistoryController { return &HistoryController{Srv: s} }

// GET /api/history?deviceId=&holderId=&action=pickup|return&limit=
func (hc *HistoryController) List(c *gin.Context) {
	q := db.HistoryQuery{
		DeviceID: c.Query("deviceId"),
		HolderID: c.Query("holderId"),
	}
	switch a := models.EventAction(c.Query("action")); a {
	case "", models.ActionPickup, models.ActionReturn:
		q.Action = a
	default:
		c.JSON(http.StatusBadRequest, app.H{"error": "action must be pickup or return"})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, app.H{"error": "limit must be a positive integer"})
			return
		}
		q.Limit = n
	}

	evs, err := hc.Repo.ListHistory(c.Request.Context(), q)
	if err != nil {
		hc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"events": evs})
}

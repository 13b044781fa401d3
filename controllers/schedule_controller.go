// controllers/schedule_controller.go
package controllers

import (
	"net/http"
	"time"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/models"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/gin-gonic/gin"
)

type ScheduleController struct {
	*Srv
	now func() time.Time
}

func NewScheduleController(s *Srv) *ScheduleController {
	return &ScheduleController{Srv: s, now: time.Now}
}

func (sc *ScheduleController) parseDay(c *gin.Context, def models.Weekday) (models.Weekday, bool) {
	raw := c.Query("day")
	if raw == "" {
		return def, true
	}
	day, ok := models.ParseWeekday(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"error": "unknown day " + raw})
	}
	return day, ok
}

// GET /api/schedule/:holderId?day=Monday：某人某天的课（默认今天）
func (sc *ScheduleController) HolderDay(c *gin.Context) {
	today := tracker.DayOf(sc.now().In(sc.Cfg.Location))
	day, ok := sc.parseDay(c, today)
	if !ok {
		return
	}
	ss, err := sc.Schedules.SessionsForHolderOnDay(c.Request.Context(), c.Param("holderId"), day)
	if err != nil {
		sc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"day": day, "sessions": ss})
}

// GET /api/admin/schedule?holderId=&day=
func (sc *ScheduleController) List(c *gin.Context) {
	day, ok := sc.parseDay(c, "")
	if !ok {
		return
	}
	ss, err := sc.Repo.ListSessions(c.Request.Context(), db.ScheduleQuery{HolderID: c.Query("holderId"), Day: day})
	if err != nil {
		sc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"sessions": ss})
}

type sessionReq struct {
	HolderID  string `json:"holderId"`
	Course    string `json:"course" binding:"required"`
	Location  string `json:"location"`
	Day       string `json:"day" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

func (r sessionReq) model() *models.ScheduleSession {
	return &models.ScheduleSession{
		HolderID:  r.HolderID,
		Course:    r.Course,
		Location:  r.Location,
		Day:       models.Weekday(r.Day),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

// invalidate 课表变更后清掉缓存，失败只记日志（缓存会按 TTL 过期）
func (sc *ScheduleController) invalidate(c *gin.Context, holderID string, days ...models.Weekday) {
	if err := sc.Schedules.Invalidate(c.Request.Context(), holderID, days...); err != nil {
		sc.log.Warn().Err(err).Str("holder_id", holderID).Msg("schedule cache invalidation failed")
	}
}

// POST /api/admin/schedule
func (sc *ScheduleController) Create(c *gin.Context) {
	var in sessionReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	s := in.model()
	if err := sc.Repo.CreateSession(c.Request.Context(), s); err != nil {
		sc.fail(c, err)
		return
	}
	sc.invalidate(c, s.HolderID, s.Day)
	c.JSON(http.StatusCreated, s)
}

// PUT /api/admin/schedule/:id
func (sc *ScheduleController) Update(c *gin.Context) {
	var in sessionReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	cur, err := sc.Repo.FindSession(ctx, c.Param("id"))
	if err != nil {
		sc.fail(c, err)
		return
	}
	s := in.model()
	s.ID = cur.ID
	s.HolderID = cur.HolderID
	prev, err := sc.Repo.UpdateSession(ctx, s)
	if err != nil {
		sc.fail(c, err)
		return
	}
	sc.invalidate(c, s.HolderID, prev.Day, s.Day)
	c.JSON(http.StatusOK, s)
}

// DELETE /api/admin/schedule/:id
func (sc *ScheduleController) Delete(c *gin.Context) {
	s, err := sc.Repo.DeleteSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		sc.fail(c, err)
		return
	}
	sc.invalidate(c, s.HolderID, s.Day)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

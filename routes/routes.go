package routes

import (
	"net/http"
	"time"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/controllers"
	"Gin_postgres_redis_device_tracker/metrics"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s)
	inviteCtl := controllers.GetInviteController(s)
	deviceCtl := controllers.NewDeviceController(s)
	scheduleCtl := controllers.NewScheduleController(s)
	historyCtl := controllers.NewHistoryController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.AppSessions(), a.Repo, a.Config)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(a.Repo, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ------------------------------
	// WebAuthn（公开+受保护）
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		// 公开：注册/登录流程
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)

		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}

	waAuth := wa.Group("", authMW, seenMW)
	{
		waAuth.GET("/whoami", s.WhoAmI)
		waAuth.POST("/logout", s.Logout)
	}

	// 已登录用户添加新凭据（绑定手机等）
	creds := r.Group("/api/credentials", authMW, seenMW)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// 邀请（仅管理员）
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
		admin.GET("/invites", inviteCtl.ListInvites) // ?pending=true
	}

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", uc.ListUsers)   // ?q=&page=&size=
		users.GET("/:id", uc.GetUser) // 含当前持有的设备
		users.PUT("/:id/admin", uc.SetAdmin)
		users.DELETE("/:id", uc.DeleteUser)
	}

	// ------------------------------
	// 设备借还（员工）
	// ------------------------------
	api := r.Group("/api", authMW, seenMW)
	{
		api.GET("/devices", deviceCtl.ListDevices)
		api.GET("/devices/mine", deviceCtl.ListMine)
		api.GET("/devices/:id", deviceCtl.GetDevice)
		api.POST("/devices/:id/checkout", deviceCtl.Checkout)
		api.POST("/devices/:id/return", deviceCtl.Return)

		api.GET("/schedule/:holderId", scheduleCtl.HolderDay) // ?day=Monday
		api.GET("/history", historyCtl.List)                  // ?deviceId=&holderId=&action=&limit=
	}

	// ------------------------------
	// 设备与课表管理（仅管理员）
	// ------------------------------
	mgmt := r.Group("/api/admin", authMW, adminMW)
	{
		mgmt.GET("/devices", deviceCtl.AdminListDevices) // ?q=&status=&page=&size=
		mgmt.POST("/devices", deviceCtl.CreateDevice)
		mgmt.DELETE("/devices/:id", deviceCtl.DeleteDevice)
		mgmt.POST("/devices/:id/checkout", deviceCtl.AdminCheckout)
		mgmt.POST("/devices/:id/return", deviceCtl.AdminReturn)
		mgmt.POST("/reconcile", deviceCtl.Reconcile)

		mgmt.GET("/schedule", scheduleCtl.List) // ?holderId=&day=
		mgmt.POST("/schedule", scheduleCtl.Create)
		mgmt.PUT("/schedule/:id", scheduleCtl.Update)
		mgmt.DELETE("/schedule/:id", scheduleCtl.Delete)
	}
}

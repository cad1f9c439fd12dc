package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/handler"
	"github.com/noah-isme/uni-schedule-api/internal/middleware"
	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	"github.com/noah-isme/uni-schedule-api/pkg/config"
	"github.com/noah-isme/uni-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-schedule-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth          *handler.AuthHandler
	users         *handler.UserHandler
	teachers      *handler.TeacherHandler
	rooms         *handler.RoomHandler
	subjects      *handler.SubjectHandler
	terms         *handler.TermHandler
	groups        *handler.GroupHandler
	schedules     *handler.ScheduleHandler
	attendance    *handler.AttendanceHandler
	audits        *handler.AuditHandler
	notifications *handler.NotificationHandler
	reports       *handler.ReportHandler
	dashboard     *handler.DashboardHandler
	metrics       *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, audits middleware.AuditWriter, metrics *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Observe(metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})

	admin := string(models.RoleAdmin)
	coordinator := string(models.RoleCoordinator)
	teacher := string(models.RoleTeacher)
	staff := middleware.RBAC(admin, coordinator)
	anyRole := middleware.RBAC(admin, coordinator, teacher)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(audits, logr, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/refresh", h.auth.Refresh)
	api.GET("/reports/download/:token", h.reports.Download)
	api.GET("/ws/notifications", middleware.JWTWithQuery(auth), h.notifications.Stream)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	secured.POST("/auth/logout", h.auth.Logout)
	secured.POST("/auth/change-password", h.auth.ChangePassword)
	secured.GET("/auth/me", h.auth.Me)

	users := secured.Group("/users")
	users.GET("", middleware.RBAC(admin), h.users.List)
	users.GET("/:id", middleware.RBAC(admin, "SELF"), h.users.Get)
	users.POST("", middleware.RBAC(admin), audit("user.create", "user"), h.users.Create)
	users.PUT("/:id", middleware.RBAC(admin), audit("user.update", "user"), h.users.Update)
	users.DELETE("/:id", middleware.RBAC(admin), audit("user.deactivate", "user"), h.users.Delete)

	teachers := secured.Group("/teachers")
	teachers.GET("", staff, h.teachers.List)
	teachers.GET("/:id", anyRole, h.teachers.Get)
	teachers.GET("/:id/load", anyRole, h.teachers.Load)
	teachers.GET("/:id/attendance-stats", anyRole, h.teachers.AttendanceStats)
	teachers.POST("", staff, audit("teacher.create", "teacher"), h.teachers.Create)
	teachers.PUT("/:id", staff, audit("teacher.update", "teacher"), h.teachers.Update)
	teachers.PUT("/:id/availability", staff, audit("teacher.availability", "teacher"), h.teachers.SetAvailability)
	teachers.PUT("/:id/max-hours", staff, audit("teacher.max_hours", "teacher"), h.teachers.SetMaxHours)
	teachers.DELETE("/:id", staff, audit("teacher.deactivate", "teacher"), h.teachers.Delete)

	rooms := secured.Group("/rooms")
	rooms.GET("", anyRole, h.rooms.List)
	rooms.GET("/available", anyRole, h.rooms.Available)
	rooms.GET("/:id", anyRole, h.rooms.Get)
	rooms.GET("/:id/occupancy", staff, h.rooms.Occupancy)
	rooms.POST("", staff, audit("room.create", "room"), h.rooms.Create)
	rooms.PUT("/:id", staff, audit("room.update", "room"), h.rooms.Update)
	rooms.DELETE("/:id", staff, audit("room.delete", "room"), h.rooms.Delete)

	subjects := secured.Group("/subjects")
	subjects.GET("", anyRole, h.subjects.List)
	subjects.GET("/:id", anyRole, h.subjects.Get)
	subjects.POST("", staff, audit("subject.create", "subject"), h.subjects.Create)
	subjects.PUT("/:id", staff, audit("subject.update", "subject"), h.subjects.Update)
	subjects.DELETE("/:id", staff, audit("subject.delete", "subject"), h.subjects.Delete)

	terms := secured.Group("/terms")
	terms.GET("", anyRole, h.terms.List)
	terms.GET("/current", anyRole, h.terms.Current)
	terms.GET("/:id", anyRole, h.terms.Get)
	terms.POST("", staff, audit("term.create", "term"), h.terms.Create)
	terms.PUT("/:id", staff, audit("term.update", "term"), h.terms.Update)
	terms.DELETE("/:id", staff, audit("term.delete", "term"), h.terms.Delete)
	terms.POST("/:id/activate", middleware.RBAC(admin), audit("term.activate", "term"), h.terms.Activate)

	groups := secured.Group("/groups")
	groups.GET("", anyRole, h.groups.List)
	groups.GET("/unscheduled", staff, h.groups.Unscheduled)
	groups.GET("/:id", anyRole, h.groups.Get)
	groups.POST("", staff, audit("group.create", "group"), h.groups.Create)
	groups.PUT("/:id", staff, audit("group.update", "group"), h.groups.Update)
	groups.DELETE("/:id", staff, audit("group.delete", "group"), h.groups.Delete)

	schedules := secured.Group("/schedules")
	schedules.GET("", anyRole, h.schedules.List)
	schedules.GET("/weekly", anyRole, h.schedules.WeeklyTerm)
	schedules.GET("/weekly/teacher/:id", anyRole, h.schedules.WeeklyTeacher)
	schedules.GET("/weekly/room/:id", anyRole, h.schedules.WeeklyRoom)
	schedules.GET("/weekly/group/:id", anyRole, h.schedules.WeeklyGroup)
	schedules.GET("/:id", anyRole, h.schedules.Get)
	schedules.POST("/validate", staff, h.schedules.Validate)
	schedules.POST("/auto-assign", staff, audit("schedule.auto_assign", "schedule"), h.schedules.AutoAssign)
	schedules.POST("", staff, audit("schedule.create", "schedule"), h.schedules.Create)
	schedules.PUT("/:id", staff, audit("schedule.update", "schedule"), h.schedules.Update)
	schedules.DELETE("/:id", staff, audit("schedule.delete", "schedule"), h.schedules.Delete)

	attendance := secured.Group("/attendance")
	attendance.GET("", anyRole, h.attendance.List)
	attendance.GET("/stats", anyRole, h.attendance.Stats)
	attendance.GET("/qr/:entry_id", anyRole, h.attendance.QRCode)
	attendance.POST("/qr", middleware.RBAC(teacher), h.attendance.CheckInQR)
	attendance.POST("/geo", middleware.RBAC(teacher), h.attendance.CheckInGeo)
	attendance.POST("", anyRole, audit("attendance.register", "attendance"), h.attendance.Register)
	attendance.GET("/:id", anyRole, h.attendance.Get)
	attendance.PUT("/:id", staff, audit("attendance.update", "attendance"), h.attendance.Update)
	attendance.DELETE("/:id", staff, audit("attendance.delete", "attendance"), h.attendance.Delete)

	auditLogs := secured.Group("/audit-logs", staff)
	auditLogs.GET("", h.audits.List)
	auditLogs.GET("/:resource", h.audits.ListByResource)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.notifications.List)
	notifications.GET("/unread-count", h.notifications.UnreadCount)
	notifications.POST("/read-all", h.notifications.MarkAllRead)
	notifications.POST("/:id/read", h.notifications.MarkRead)
	notifications.DELETE("/:id", h.notifications.Delete)

	reports := secured.Group("/reports")
	reports.GET("/weekly-schedule", anyRole, h.reports.Weekly)
	reports.GET("/teacher-attendance/:id", anyRole, h.reports.TeacherAttendance)
	reports.GET("/teacher-load", staff, h.reports.TeacherLoads)
	reports.GET("/room-occupancy", staff, h.reports.RoomOccupancy)
	reports.POST("/jobs", anyRole, h.reports.CreateJob)
	reports.GET("/jobs/:id", anyRole, h.reports.JobStatus)

	secured.GET("/dashboard/summary", anyRole, h.dashboard.Summary)
	secured.GET("/metrics/summary", middleware.RBAC(admin), h.metrics.Snapshot)

	return r
}

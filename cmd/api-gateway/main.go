package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uni-schedule-api/api/swagger"
	"github.com/noah-isme/uni-schedule-api/internal/handler"
	"github.com/noah-isme/uni-schedule-api/internal/realtime"
	"github.com/noah-isme/uni-schedule-api/internal/repository"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	"github.com/noah-isme/uni-schedule-api/pkg/cache"
	"github.com/noah-isme/uni-schedule-api/pkg/config"
	"github.com/noah-isme/uni-schedule-api/pkg/database"
	"github.com/noah-isme/uni-schedule-api/pkg/jobs"
	"github.com/noah-isme/uni-schedule-api/pkg/logger"
	"github.com/noah-isme/uni-schedule-api/pkg/qrcode"
	"github.com/noah-isme/uni-schedule-api/pkg/storage"
)

// @title University Schedule API
// @version 1.0.0
// @description Timetable placement, teacher attendance and reporting for university departments.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to assemble application", "error", err)
	}
	app.start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	app.stop()
}

type application struct {
	router      *gin.Engine
	notifyQueue *jobs.Queue
	reportQueue *jobs.Queue
	reports     *service.ReportService
	logger      *zap.Logger
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()
	loc := cfg.Scheduling.Location()

	users := repository.NewUserRepository(db)
	teachers := repository.NewTeacherRepository(db)
	rooms := repository.NewRoomRepository(db)
	subjects := repository.NewSubjectRepository(db)
	terms := repository.NewTermRepository(db)
	groups := repository.NewGroupRepository(db)
	schedules := repository.NewScheduleRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	notifications := repository.NewNotificationRepository(db)
	reportJobs := repository.NewReportJobRepository(db)
	audits := repository.NewAuditRepository(db)
	dashboard := repository.NewDashboardRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Scheduling.CacheTTL, logr, true)
	}

	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(realtime.Config{WriteTimeout: cfg.Realtime.WriteTimeout, PingInterval: cfg.Realtime.PingInterval}, logr)
	}
	notificationSvc := service.NewNotificationService(notifications, publisherOf(hub), metrics, logr)
	notifyQueue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: time.Second,
		Logger:     logr,
		DeadLetter: notificationSvc.DeadLetter,
	})
	notificationSvc.UseQueue(notifyQueue)

	authSvc := service.NewAuthService(users, teachers, audits, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(users, validate, logr)
	auditSvc := service.NewAuditService(audits, logr)
	teacherSvc := service.NewTeacherService(teachers, schedules, attendance, terms, validate, logr, cfg.Scheduling.DefaultMaxWeeklyHours)
	roomSvc := service.NewRoomService(rooms, schedules, terms, validate, logr)
	subjectSvc := service.NewSubjectService(subjects, validate, logr)
	termSvc := service.NewTermService(terms, teachers, notificationSvc, validate, logr)
	groupSvc := service.NewGroupService(groups, subjects, terms, validate, logr)
	scheduleSvc := service.NewScheduleService(db, schedules, teachers, rooms, groups, terms, notificationSvc, cacheSvc, metrics, validate, logr, service.ScheduleConfig{
		DefaultMaxWeeklyHours: cfg.Scheduling.DefaultMaxWeeklyHours,
		CacheTTL:              cfg.Scheduling.CacheTTL,
	})
	attendanceSvc := service.NewAttendanceService(attendance, schedules, rooms, notificationSvc, metrics, qrcode.NewGenerator(cfg.Attendance.QRSize), validate, logr, service.AttendanceConfig{
		LateTolerance:    cfg.Scheduling.LateTolerance,
		Location:         loc,
		GeoRadiusMeters:  cfg.Attendance.GeoRadiusMeters,
		AbsenceWindow:    cfg.Attendance.AbsenceWindow,
		AbsenceThreshold: cfg.Attendance.AbsenceThreshold,
	})
	analyticsSvc := service.NewAnalyticsService(schedules, attendance, terms, cacheSvc, logr, cfg.Scheduling.DefaultMaxWeeklyHours)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Totals:     dashboard,
		Terms:      terms,
		Attendance: attendance,
		Schedules:  schedules,
		Cache:      cacheSvc,
		Logger:     logr,
		Config:     service.DashboardServiceConfig{Location: loc},
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(analyticsSvc, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)
	worker := service.NewReportWorker(reportJobs, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		BufferSize: 32,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	reportSvc := service.NewReportService(reportJobs, terms, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	handlers := routeHandlers{
		auth:          handler.NewAuthHandler(authSvc),
		users:         handler.NewUserHandler(userSvc),
		teachers:      handler.NewTeacherHandler(teacherSvc),
		rooms:         handler.NewRoomHandler(roomSvc),
		subjects:      handler.NewSubjectHandler(subjectSvc),
		terms:         handler.NewTermHandler(termSvc),
		groups:        handler.NewGroupHandler(groupSvc),
		schedules:     handler.NewScheduleHandler(scheduleSvc),
		attendance:    handler.NewAttendanceHandler(attendanceSvc),
		audits:        handler.NewAuditHandler(auditSvc),
		notifications: handler.NewNotificationHandler(notificationSvc, connectionsOf(hub), realtime.Upgrader(), logr),
		reports:       handler.NewReportHandler(analyticsSvc, reportSvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		metrics:       handler.NewMetricsHandler(metrics, checks),
	}
	router := newRouter(cfg, logr, authSvc, audits, metrics, handlers)

	return &application{
		router:      router,
		notifyQueue: notifyQueue,
		reportQueue: reportQueue,
		reports:     reportSvc,
		logger:      logr,
	}, nil
}

func (a *application) start(ctx context.Context) {
	a.notifyQueue.Start(ctx)
	a.reportQueue.Start(ctx)
	if recovered := a.reports.RecoverPendingJobs(ctx); recovered > 0 {
		a.logger.Info("recovered report jobs", zap.Int("count", recovered))
	}
	a.reports.StartCleanup(ctx)
}

func (a *application) stop() {
	a.reportQueue.Stop()
	a.notifyQueue.Stop()
}

// publisherOf avoids handing a typed nil hub to the notification service.
func publisherOf(hub *realtime.Hub) interface {
	Publish(userID string, msg realtime.Message)
} {
	if hub == nil {
		return nil
	}
	return hub
}

func connectionsOf(hub *realtime.Hub) interface {
	Serve(ctx context.Context, userID string, conn *websocket.Conn)
} {
	if hub == nil {
		return nil
	}
	return hub
}

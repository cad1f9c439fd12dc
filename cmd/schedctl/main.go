package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/repository"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	"github.com/noah-isme/uni-schedule-api/pkg/config"
	"github.com/noah-isme/uni-schedule-api/pkg/database"
	"github.com/noah-isme/uni-schedule-api/pkg/logger"
)

// App holds the dependencies shared by every command.
type App struct {
	cfg       *config.Config
	db        *sqlx.DB
	logger    *zap.Logger
	schedules *service.ScheduleService
	terms     *service.TermService
	teachers  *service.TeacherService
}

var app *App

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "schedctl",
		Short:         "schedctl - operate university timetables",
		Long:          `Administrative commands for term activation, automatic assignment and teacher load checks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app == nil {
				return
			}
			if app.db != nil {
				_ = app.db.Close()
			}
			_ = app.logger.Sync()
		},
	}

	rootCmd.AddCommand(autoAssignCmd())
	rootCmd.AddCommand(activateTermCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// initApp loads configuration, opens the database and wires the services.
func initApp() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	teachers := repository.NewTeacherRepository(db)
	rooms := repository.NewRoomRepository(db)
	terms := repository.NewTermRepository(db)
	groups := repository.NewGroupRepository(db)
	schedules := repository.NewScheduleRepository(db)
	attendance := repository.NewAttendanceRepository(db)

	// No queue: notifications are written inline before the process exits.
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, metrics, logr)

	app = &App{
		cfg:    cfg,
		db:     db,
		logger: logr,
		schedules: service.NewScheduleService(db, schedules, teachers, rooms, groups, terms, notifications, nil, metrics, validate, logr, service.ScheduleConfig{
			DefaultMaxWeeklyHours: cfg.Scheduling.DefaultMaxWeeklyHours,
			CacheTTL:              cfg.Scheduling.CacheTTL,
		}),
		terms:    service.NewTermService(terms, teachers, notifications, validate, logr),
		teachers: service.NewTeacherService(teachers, schedules, attendance, terms, validate, logr, cfg.Scheduling.DefaultMaxWeeklyHours),
	}
	return nil
}

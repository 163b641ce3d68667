package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bedside/bedside/internal/config"
	"github.com/bedside/bedside/internal/domain/approval"
	"github.com/bedside/bedside/internal/domain/audit"
	"github.com/bedside/bedside/internal/domain/intake"
	"github.com/bedside/bedside/internal/domain/notification"
	"github.com/bedside/bedside/internal/domain/patient"
	"github.com/bedside/bedside/internal/platform/auth"
	"github.com/bedside/bedside/internal/platform/dashboard"
	"github.com/bedside/bedside/internal/platform/db"
	"github.com/bedside/bedside/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bedside-server",
		Short: "Patient request triage and policy API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSecs) * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/api/v1/health", db.HealthHandler(pool))

	// Ward dashboard websocket hub
	hub := dashboard.NewHub(logger)
	dashHandler := dashboard.NewHandler(hub)
	dashHandler.RegisterRoutes(e.Group("/ws"))

	// Patient registry
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	// Staff notification dispatcher
	notifStore := notification.NewStorePG(pool)
	dispatcher := notification.NewDispatcher(notifStore, logger, cfg.NotifyMaxRetries,
		notification.NewDashboardSender(hub),
		notification.NewPushSender(cfg.PushGatewayURL),
		notification.NewSMSSender(cfg.SMSGatewayURL),
	)
	notification.NewHandler(notifStore).RegisterRoutes(apiV1)

	// Approval queue
	approvalRepo := approval.NewRepoPG(pool)
	approvalSvc := approval.NewService(approvalRepo, logger)
	approvalSvc.SetBreachHandler(func(entry *approval.Entry) {
		ward := cfg.DefaultWard
		if p, err := patientRepo.GetByID(ctx, entry.PatientID); err == nil {
			ward = p.Ward
		}
		hub.Publish(ctx, dashboard.Event{
			Type:      dashboard.EventSLABreach,
			Ward:      ward,
			RequestID: entry.RequestID.String(),
			Priority:  string(entry.Urgency),
			Message:   fmt.Sprintf("Approval %s overdue, assigned to %s", entry.QueueRef, entry.AssignedRole),
			Timestamp: time.Now().UTC(),
		})
	})
	approval.NewHandler(approvalSvc).RegisterRoutes(apiV1)

	// Audit trail
	auditStore := audit.NewStorePG(pool)
	auditSvc := audit.NewService(auditStore, logger)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)

	// Request intake pipeline
	intakeRepo := intake.NewRepoPG(pool)
	intakeSvc := intake.NewService(intakeRepo, patientRepo, dispatcher, approvalSvc, auditSvc, hub, cfg.DefaultWard, logger)
	intake.NewHandler(intakeSvc).RegisterRoutes(apiV1)

	// SLA sweeper
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go approvalSvc.RunSLASweeper(sweepCtx, time.Duration(cfg.SLASweepIntervalSecs)*time.Second)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

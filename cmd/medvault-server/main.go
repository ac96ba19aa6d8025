package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/access"
	"github.com/medvault/medvault/internal/domain/directory"
	"github.com/medvault/medvault/internal/domain/patient"
	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/domain/sharing"
	"github.com/medvault/medvault/internal/domain/summary"
	"github.com/medvault/medvault/internal/platform/ai"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/middleware"
	"github.com/medvault/medvault/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault-server",
		Short: "Patient-controlled medical record vault API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MedVault API server",
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

// patientNames adapts the patient repository to the summary generator's name
// lookup.
type patientNames struct {
	repo patient.Repository
}

func (n patientNames) DisplayName(ctx context.Context, patientID uuid.UUID) (string, error) {
	p, err := n.repo.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
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

	// Repositories
	patientRepo := patient.NewRepoPG(pool)
	orgRepo := directory.NewOrganizationRepoPG(pool)
	employeeRepo := directory.NewEmployeeRepoPG(pool)
	recordRepo := records.NewRepoPG(pool)
	tokenRepo := sharing.NewTokenRepoPG(pool)
	providerRepo := sharing.NewProviderRepoPG(pool)
	summaryRepo := summary.NewRepoPG(pool)
	logRepo := access.NewLogRepoPG(pool)
	challenges := auth.NewPGChallengeStore(pool)

	// Platform services
	sessions := auth.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.IsProduction())
	mailer := notification.NewMailer(&notification.LogSender{Logger: logger}, notification.NewTemplateEngine())
	otpTTL := time.Duration(cfg.OTPTTLMinutes) * time.Minute

	// Domain services
	dirSvc := directory.NewService(orgRepo, employeeRepo)
	patientSvc := patient.NewService(patientRepo, challenges, mailer, logger, otpTTL)
	recordSvc := records.NewService(recordRepo)
	shareSvc := sharing.NewService(tokenRepo, providerRepo,
		time.Duration(cfg.TokenDefaultTTLHours)*time.Hour,
		time.Duration(cfg.TokenMaxTTLHours)*time.Hour)
	summarySvc := summary.NewService(summaryRepo, recordRepo, patientNames{patientRepo}, ai.Disabled{}, logger,
		time.Duration(cfg.SummaryCooldownSeconds)*time.Second)
	accessSvc := access.NewService(dirSvc, shareSvc, recordSvc, summarySvc, patientRepo,
		logRepo, challenges, mailer, logger, otpTTL)

	// Session middleware config, resolved once at startup
	sessionCfg := auth.SessionConfig{Manager: sessions}
	if cfg.ResolvedAuthMode() == config.AuthModeDevBypass {
		if cfg.DemoPatientEmail == "" {
			logger.Fatal().Msg("AUTH_MODE=dev-bypass requires DEMO_PATIENT_EMAIL")
		}
		demo, err := patientRepo.GetByEmail(ctx, cfg.DemoPatientEmail)
		if err != nil {
			logger.Fatal().Err(err).Str("email", cfg.DemoPatientEmail).Msg("demo patient not found")
		}
		sessionCfg.Bypass = true
		sessionCfg.DemoPatientID = demo.ID
		logger.Warn().Str("patient_id", demo.ID.String()).Msg("auth bypass enabled, all unauthenticated requests act as the demo patient")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	patients := api.Group("/patients", auth.PatientSession(sessionCfg))

	// Handlers
	patientHandler := patient.NewHandler(patientSvc, sessions)
	patientHandler.RegisterRoutes(api, patients)
	patientHandler.RegisterSessionProbe(api, auth.OptionalPatientSession(sessionCfg))
	directory.NewHandler(dirSvc).RegisterRoutes(api)
	records.NewHandler(recordSvc).RegisterRoutes(patients)
	sharing.NewHandler(shareSvc).RegisterRoutes(patients)
	summary.NewHandler(summarySvc).RegisterRoutes(patients)
	access.NewHandler(accessSvc).RegisterRoutes(api, patients)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/nodues/internal/app/controllers"
	appMigrations "github.com/yigit/nodues/internal/app/migrations"
	appModels "github.com/yigit/nodues/internal/app/models"
	appRepos "github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/app/repositories/memory"
	"github.com/yigit/nodues/internal/app/repositories/postgres"
	appRoutes "github.com/yigit/nodues/internal/app/routes"
	appServices "github.com/yigit/nodues/internal/app/services"
	"github.com/yigit/nodues/internal/config"
	"github.com/yigit/nodues/internal/db"
	appMiddleware "github.com/yigit/nodues/internal/middleware"
	pkgAuth "github.com/yigit/nodues/internal/pkg/auth"
	"github.com/yigit/nodues/internal/pkg/filestorage"
	"github.com/yigit/nodues/internal/pkg/logger"
	"github.com/yigit/nodues/internal/pkg/retry"
	"github.com/yigit/nodues/internal/pkg/telemetry"
	"github.com/yigit/nodues/internal/pkg/websocket"
	"github.com/yigit/nodues/internal/seed"
)

// DefaultConfigPath is used when no --config flag or CONFIG_PATH is given
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store            appRepos.Store
	JWTService       *pkgAuth.JWTService
	ReferenceService *appServices.ReferenceService
	ClearanceService *appServices.ClearanceService
	AuthService      *appServices.AuthService
	FileStorage      *filestorage.LocalStorage
	Attachments      *filestorage.Attachments
	Hub              *websocket.Hub
	AuthMiddleware   *appMiddleware.AuthMiddleware
	Controllers      appRoutes.Controllers
	Logger           zerolog.Logger
}

// ResolveConfigPath picks the flag value, then CONFIG_PATH, then the default
func ResolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return config.GetEnv("CONFIG_PATH", DefaultConfigPath)
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: strings.ToLower(cfg.Logging.Format),
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupTelemetry installs the tracer provider described by the config
func SetupTelemetry(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) error {
	err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Stdout:      cfg.Telemetry.Stdout,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize telemetry")
		return err
	}
	lgr.Info().Bool("enabled", cfg.Telemetry.Enabled).Msg("Telemetry configured")
	return nil
}

// ConnectDatabase opens the PostgreSQL pool
func ConnectDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// RunMigrations applies every pending migration in the configured directory
func RunMigrations(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); errors.Is(err, os.ErrNotExist) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// SetupStore opens the configured store. PostgreSQL is migrated on the way up;
// the memory store starts empty.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		lgr.Warn().Msg("Using the in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	database, err := ConnectDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, cfg, database, lgr); err != nil {
		database.Close()
		return nil, err
	}
	return postgres.NewStore(database), nil
}

// SeedDefaults creates the reference data and staff accounts when seeding is enabled
func SeedDefaults(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) error {
	if !cfg.Seed.Enabled {
		return nil
	}
	_, err := seed.CreateDefaultData(ctx, store, SeedOptions(cfg), lgr)
	return err
}

// SeedOptions maps the seed section of the config
func SeedOptions(cfg *config.Config) seed.Options {
	return seed.Options{
		AdminEmail:      cfg.Seed.AdminEmail,
		AdminPassword:   cfg.Seed.AdminPassword,
		OfficerPassword: cfg.Seed.OfficerPassword,
	}
}

// WorkflowPolicy maps the workflow section of the config
func WorkflowPolicy(cfg *config.Config) appModels.Policy {
	return appModels.Policy{
		CascadeRejection: cfg.Workflow.CascadeRejection,
		FinalStatus:      appModels.RequestStatus(cfg.Workflow.FinalStatus),
	}
}

// BuildDependencies initializes application services, controllers and the event hub.
func BuildDependencies(cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	// Stored attachment URLs point at the authorized download route
	var err error
	fileStorageBaseURL := strings.TrimRight(cfg.Server.BaseURL, "/") + "/api/v1/uploads"
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, fileStorageBaseURL, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	deps.Attachments = filestorage.NewAttachments(deps.FileStorage, cfg.Workflow.MaxDocuments)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.Hub = websocket.NewHub(lgr)

	deps.ReferenceService = appServices.NewReferenceService(store, cfg.ReferenceCacheTTL(), lgr)
	deps.ClearanceService = appServices.NewClearanceService(
		store,
		deps.ReferenceService,
		WorkflowPolicy(cfg),
		lgr,
		appServices.WithEventPublisher(deps.Hub),
		appServices.WithReadRetry(retry.Policy{MaxElapsed: cfg.QueryTimeout()}),
	)
	deps.AuthService = appServices.NewAuthService(store, deps.ReferenceService, deps.JWTService, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Auth:      appControllers.NewAuthController(deps.AuthService, lgr),
		Reference: appControllers.NewReferenceController(deps.ReferenceService),
		Clearance: appControllers.NewClearanceController(deps.ClearanceService, deps.Attachments, lgr),
		Unit:      appControllers.NewUnitController(deps.ClearanceService),
		Admin:     appControllers.NewAdminController(deps.ClearanceService),
		WebSocket: websocket.NewHandler(deps.Hub, lgr),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))
	router.MaxMultipartMemory = 32 << 20

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "store unavailable", "status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

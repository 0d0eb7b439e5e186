package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/pos-admin/internal"
	"github.com/frahmantamala/pos-admin/internal/auth"
	authPostgres "github.com/frahmantamala/pos-admin/internal/auth/postgres"
	"github.com/frahmantamala/pos-admin/internal/core/events"
	"github.com/frahmantamala/pos-admin/internal/iam"
	iamPostgres "github.com/frahmantamala/pos-admin/internal/iam/postgres"
	"github.com/frahmantamala/pos-admin/internal/permission"
	"github.com/frahmantamala/pos-admin/internal/transport"
	"github.com/frahmantamala/pos-admin/internal/transport/rest"
	"github.com/frahmantamala/pos-admin/internal/user"
	userPostgres "github.com/frahmantamala/pos-admin/internal/user/postgres"
	"github.com/frahmantamala/pos-admin/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var (
	openAPIPath string
	logRequests bool
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIPath, "openapi", "./api/openapi.yml", "path of the OpenAPI document served at /openapi.yml")
	httpServerCmd.Flags().BoolVar(&logRequests, "log-requests", true, "log every request and response")
}

// Dependencies is everything built from the configuration. The server, the
// sync and the seed commands share it.
type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Logger   *slog.Logger
	Bus      *events.EventBus
	Registry *permission.Registry

	IAMService  *iam.Service
	UserService *user.Service
	AuthService *auth.Service
	Resolver    *auth.Resolver
	Syncer      *iam.Syncer
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router := chi.NewRouter()
	setupRoutes(router, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "permissions", deps.Registry.Len())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(router *chi.Mux, deps *Dependencies) {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	gate := auth.NewGate(deps.Resolver, deps.Logger, auth.GateOptions{
		LoginURL:          cfg.Security.LoginURL,
		ForbiddenRedirect: cfg.Security.ForbiddenRedirect,
	})

	rest.RegisterAllRoutes(router, rest.Handlers{
		Health: rest.NewHealthHandler(deps.DB.DB, deps.Registry.Len()),
		Auth:   auth.NewHandler(deps.AuthService),
		User:   user.NewHandler(base, deps.UserService, deps.Resolver),
		IAM:    iam.NewHandler(base, deps.IAMService, deps.Syncer, deps.Registry),
		Gate:   gate,
	}, rest.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPIPath:    openAPIPath,
		LogRequests:    logRequests,
		LoginRateLimit: cfg.Server.LoginRateLimit,
	}, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.L()

	// a misdeclared catalog stops the process here
	registry, err := permission.Default()
	if err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db.DB)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	bus := events.NewEventBus(lg)
	iam.RegisterAuditLog(bus, lg)

	iamService := iam.NewService(iamPostgres.NewIAMRepository(gormDB), bus, lg, config.IAM.FallbackRole)
	userService := user.NewService(userPostgres.NewUserRepository(gormDB), iamService, bus, lg, config.Security.BCryptCost)

	authRepo := authPostgres.NewRepository(db)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)

	return &Dependencies{
		Config:      config,
		DB:          db,
		Gorm:        gormDB,
		Logger:      lg,
		Bus:         bus,
		Registry:    registry,
		IAMService:  iamService,
		UserService: userService,
		AuthService: auth.NewService(authRepo, tokenGen, lg),
		Resolver:    auth.NewResolver(authRepo, lg),
		Syncer:      iam.NewSyncer(registry, iamService, userService, lg),
	}, nil
}

// Close drains pending event handlers, then releases the pool.
func (d *Dependencies) Close() {
	d.Bus.Wait()
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB opens the pgx pool that both sqlx and gorm run on.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(conn *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/inequality-dashboard/internal/auth"
	"github.com/olegiv/inequality-dashboard/internal/config"
	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/geoip"
	"github.com/olegiv/inequality-dashboard/internal/handler"
	"github.com/olegiv/inequality-dashboard/internal/i18n"
	"github.com/olegiv/inequality-dashboard/internal/imaging"
	"github.com/olegiv/inequality-dashboard/internal/logging"
	"github.com/olegiv/inequality-dashboard/internal/middleware"
	"github.com/olegiv/inequality-dashboard/internal/redisstore"
	"github.com/olegiv/inequality-dashboard/internal/render"
	"github.com/olegiv/inequality-dashboard/internal/scheduler"
	"github.com/olegiv/inequality-dashboard/internal/session"
	"github.com/olegiv/inequality-dashboard/internal/store"
	"github.com/olegiv/inequality-dashboard/internal/version"
	"github.com/olegiv/inequality-dashboard/internal/visitor"
	"github.com/olegiv/inequality-dashboard/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Income inequality dashboard\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_SESSION_SECRET    Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_DB_DRIVER         Database driver: sqlite|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_DB_PATH           SQLite database path (default: ./data/dashboard.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_STORE_BACKEND     Role and feedback store: sql|redis (default: sql)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_REDIS_URL         Redis URL when the redis backend is used\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_AUTH_PROVIDER     Identity provider: local|firebase (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_REPORT_URL        Embedded report URL\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DASH_ENV               Environment: development|production (default: development)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	// Database
	driver := store.Driver(cfg.DBDriver)
	if driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", driver)
	db, err := store.Open(driver, cfg.DBSource(), store.DefaultDBConfig())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db, driver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	catalog, err := i18n.Load(logger)
	if err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n catalog loaded", "languages", i18n.SupportedLanguages)

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(db.PingContext),
	}

	// Role and feedback stores
	var (
		roles    dashboard.RoleStore
		feedback dashboard.FeedbackStore
	)
	if cfg.UseRedisStore() {
		rc, err := redisstore.ConnectURL(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = rc.Close() }()
		roles = redisstore.NewRoleStore(rc)
		feedback = redisstore.NewFeedbackStore(rc)
		checks["redis"] = rc
		slog.Info("store backend initialized", "backend", config.BackendRedis, "url", cfg.RedisURL)
	} else {
		roles = store.NewRoleStore(db)
		feedback = store.NewFeedbackStore(db)
		slog.Info("store backend initialized", "backend", config.BackendSQL, "driver", driver)
	}

	// Identity provider
	var gateway dashboard.AuthGateway
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		gateway = auth.NewFirebaseGateway(cfg.FirebaseAPIKey, cfg.FirebaseEndpoint, &http.Client{Timeout: 10 * time.Second})
	default:
		gateway = auth.NewLocalGateway(db, logger)
	}
	slog.Info("auth gateway initialized", "provider", cfg.AuthProvider)

	ctrl := dashboard.NewController(gateway, roles, feedback,
		dashboard.WithLogger(logger),
		dashboard.WithFirstAdminGuard(cfg.FirstAdminGuard),
	)

	// GeoIP is optional; a missing database only disables country lookup.
	geo, err := geoip.Open(cfg.GeoIPDBPath)
	switch {
	case err != nil:
		slog.Warn("GeoIP database unavailable, country lookup disabled", "path", cfg.GeoIPDBPath, "error", err)
	case cfg.GeoIPEnabled():
		slog.Info("GeoIP lookup enabled", "path", cfg.GeoIPDBPath)
	}
	defer func() { _ = geo.Close() }()

	background := ""
	if cfg.BackgroundImage != "" {
		background, err = imaging.BackgroundDataURI(cfg.BackgroundImage)
		if err != nil {
			slog.Warn("background image unavailable, using default", "path", cfg.BackgroundImage, "error", err)
			background = ""
		}
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	contentFS, err := fs.Sub(web.Content, "content")
	if err != nil {
		return fmt.Errorf("getting content fs: %w", err)
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS: templatesFS,
		ContentFS:   contentFS,
		Catalog:     catalog,
		Report: render.Report{
			URL:       cfg.ReportURL,
			Title:     cfg.ReportTitle,
			Width:     cfg.ReportWidth,
			Height:    cfg.ReportHeight,
			Scrolling: cfg.ReportScrolling,
		},
		BackgroundURI: background,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	sessionManager := session.NewManager(session.New(db, driver, session.Options{
		Lifetime: cfg.SessionLifetime,
		IsDev:    cfg.IsDevelopment(),
	}))
	slog.Info("session manager initialized")

	loginConfig := middleware.DefaultLoginProtectionConfig()
	loginConfig.Catalog = catalog
	loginConfig.Logger = logger
	loginProtection := middleware.NewLoginProtection(loginConfig)
	globalLimiter := middleware.NewGlobalRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, catalog, logger)

	sched := scheduler.New(db, logger, cfg.EventRetentionDays)
	sched.AddSweeper(loginProtection)
	sched.AddSweeper(globalLimiter)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	dash := handler.NewDashboard(handler.DashboardConfig{
		Controller: ctrl,
		Sessions:   sessionManager,
		Renderer:   renderer,
		Describer:  visitor.NewDescriber(geo),
		Guard:      loginProtection,
		Logger:     logger,
	})
	healthHandler := handler.NewHealthHandler(checks, versionInfo.String(), dash.IsAdmin)

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.TrustedOrigins...)
	csrfConfig.ErrorHandler = middleware.CSRFErrorHandler(logger, catalog)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))             // Gzip compression with level 5
	r.Use(chimw.GetHead)                 // Handle HEAD requests for uptime monitoring
	r.Use(middleware.RequestDeadline(cfg.RequestTimeout, logger))
	r.Use(middleware.StripTrailingSlash) // Redirect /path/ to /path
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment(), cfg.ReportURL)))

	r.Handle("/static/*", middleware.StaticCache(365*24*time.Hour)(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	r.Group(func(r chi.Router) {
		r.Use(globalLimiter.Middleware())
		r.Use(sessionManager.LoadAndSave)

		r.Get("/health", healthHandler.Health)
		r.Get("/health/live", healthHandler.Liveness)
		r.Get("/health/ready", healthHandler.Readiness)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Language(catalog, !cfg.IsDevelopment()))
			r.Use(middleware.CSRF(csrfConfig))
			r.Use(middleware.NoStore)
			dash.Routes(r)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// SIGHUP reloads the GeoIP database after it has been replaced on disk.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

wait:
	for {
		select {
		case <-hup:
			if err := geo.Reload(); err != nil {
				slog.Warn("GeoIP reload failed", "error", err)
			} else {
				slog.Info("GeoIP database reloaded")
			}
		case <-quit:
			break wait
		}
	}

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// cmd/server/main.go
// This is the entry point for the Golf Wagers API server.
// In Go, the "main" package and its "main()" function is where the program starts executing.
// The "cmd/server" directory follows a common Go convention: the cmd/ folder holds executable
// binaries, and internal/ holds reusable packages that are not meant to be imported by other projects.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	// fiber is a fast HTTP web framework inspired by Express.js
	"github.com/gofiber/fiber/v2"
	// adaptor wraps a standard net/http handler so Fiber can serve it; we need it
	// because the Prometheus handler is written against net/http.
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	// cors handles Cross-Origin Resource Sharing, which allows the mobile app to talk to
	// the API even though they're running on different origins (hosts/ports)
	"github.com/gofiber/fiber/v2/middleware/cors"
	// fiberlogger prints request details (method, path, status, duration) to stdout.
	// It's renamed on import because our own logger package has the same name.
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages: our own code, imported by module path
	"github.com/trentd187/golf-wagers/internal/config"
	"github.com/trentd187/golf-wagers/internal/database"
	"github.com/trentd187/golf-wagers/internal/handlers"
	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/metrics"
	"github.com/trentd187/golf-wagers/internal/middleware"
	"github.com/trentd187/golf-wagers/internal/notify"
	"github.com/trentd187/golf-wagers/internal/store"
	"github.com/trentd187/golf-wagers/internal/websocket"
)

// shutdownTimeout bounds how long in-flight requests get to finish after a signal.
const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from environment variables (and optionally a .env file).
	// cfg is a pointer (*Config) containing all runtime settings like port, database URL, etc.
	// Load only fails on a malformed value, so there is no logger configured yet; the
	// default slog logger writes the reason to stderr.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Init builds the structured logger and installs it as slog's default,
	// so every package can log through logger.FromContext from here on.
	log := logger.Init(cfg.Logger())

	// ctx is cancelled when the process receives SIGINT (Ctrl+C) or SIGTERM (what
	// Docker and ECS send on shutdown). Everything long-running watches it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the PostgreSQL database.
	// We store the returned *gorm.DB; it's used by middleware and the store to run queries.
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	// Run any pending SQL migration files (in the migrations/ directory).
	// Migrations are SQL scripts that create or alter tables. Running them on startup
	// ensures the database schema is always in sync when the server starts.
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// The store is the only code that talks to the rounds tables. It keeps recently
	// used tee layouts in memory because every recompute needs the course.
	repo := store.New(db, cfg.CourseCacheSize, cfg.CourseCacheTTL)

	// Settlement events (a skin won, a press closed, a bet pushed) are published to
	// NATS for anything downstream that pays out or notifies players.
	// With NATS_URL unset this is a no-op publisher.
	pub, err := notify.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		log.Error("failed to connect to NATS", slog.Any("error", err))
		os.Exit(1)
	}
	// defer runs pub.Close() when main returns, flushing anything still buffered.
	defer pub.Close()

	// Create the Hub that fans leaderboard updates out to live viewers and start it in a goroutine.
	// "go hub.Run(ctx)" starts Run() as a goroutine: a lightweight concurrent function
	// that runs in the background without blocking the rest of startup. It stops when ctx does.
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Create a new Fiber app (our HTTP server).
	app := fiber.New(fiber.Config{
		AppName: "Golf Wagers API",
	})

	// --- Global middleware ---
	// These run on every request before any route handler, in the order registered.
	// RequestID tags the request so every log line it produces can be correlated.
	app.Use(middleware.RequestID())
	// fiberlogger.New() logs each HTTP request: method, path, status code, and duration.
	app.Use(fiberlogger.New())
	// cors.New() allows requests from any origin (needed for the mobile app in development).
	// In production, lock this down to your specific domain.
	app.Use(cors.New())
	// metrics.Middleware() counts requests and records latency per route for Prometheus.
	app.Use(metrics.Middleware())

	// --- Public routes (no auth required) ---
	// GET /health is a liveness check used by AWS ECS / load balancers to verify the server is running.
	app.Get("/health", handlers.HealthCheck)
	// GET /ready also checks the database. db.DB() returns the *sql.DB pool GORM wraps.
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("failed to get database pool", slog.Any("error", err))
		os.Exit(1)
	}
	app.Get("/ready", handlers.ReadyCheck(sqlDB.PingContext))
	// GET /metrics is scraped by Prometheus.
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// --- Authenticated API routes ---
	// All routes under /api/v1 require a valid Clerk JWT.
	// middleware.Auth(cfg, db) validates the token AND syncs the user to our database.
	//
	// Route group pattern: app.Group(prefix, middlewares...) applies the middleware
	// to every route registered on the returned group, so we don't have to repeat it per route.
	api := app.Group("/api/v1", middleware.Auth(cfg, db))
	handlers.Routes(api, handlers.New(repo, hub, pub))

	// Listen in a goroutine so main can wait for a shutdown signal below.
	// ":" + cfg.Port produces a string like ":8080" (listen on all network interfaces).
	go func() {
		log.Info("starting server", slog.String("port", cfg.Port), slog.String("env", cfg.Env))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	// Block until a signal arrives (or Listen fails), then give in-flight requests
	// a bounded amount of time to finish before exiting.
	<-ctx.Done()
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

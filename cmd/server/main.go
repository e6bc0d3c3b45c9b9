package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/firebase"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/mailer"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	st := store.NewGormStore(db)
	if err := database.Seed(context.Background(), st); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log retention and expired session cleanup
	janitorDone := make(chan struct{})
	logging.StartJanitor(db, st.Sessions(), janitorDone)

	// Firebase (optional)
	fb := firebase.NewFromCredentialsFile(cfg.FirebaseCredentialsPath, nil)
	if !fb.Enabled() {
		slog.Warn("firebase disabled", "reason", fb.DisabledReason())
	}

	// Mail (optional)
	var transport mailer.Transport
	if cfg.MailEnabled() {
		client, err := mailer.NewSMTPClient(mailer.SMTPConfig{
			Host:     cfg.MailServer,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			StartTLS: cfg.MailStartTLS,
			SSL:      cfg.MailSSLTLS,
		})
		if err != nil {
			slog.Error("smtp client setup failed", "error", err)
		} else {
			transport = client
		}
	}
	mail := mailer.New(transport, cfg.MailFrom, cfg.FrontendURL)
	if !mail.Enabled() {
		slog.Warn("email delivery disabled")
	}

	// Services
	tokens := security.NewTokenCodec(cfg.SecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	resolver := services.NewIdentityResolver(st, tokens, cfg.RequireEmailVerification)
	authService := services.NewAuthService(services.AuthDeps{
		Store:                    st,
		Hasher:                   hasher,
		Tokens:                   tokens,
		Firebase:                 fb,
		Notifier:                 mail,
		AdminEmails:              cfg.BootstrapAdminEmails,
		PhoneRegion:              cfg.PhoneDefaultRegion,
		RequireEmailVerification: cfg.RequireEmailVerification,
	})
	userService := services.NewUserService(st, hasher, cfg.PhoneDefaultRegion)
	adminService := services.NewAdminService(st)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, tokens.Secret(), resolver, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		User:   handlers.NewUserHandler(userService),
		Admin:  handlers.NewAdminHandler(adminService),
		Health: handlers.NewHealthHandler(st, fb, mail),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	shutdown(app, janitorDone, pgLogHandler)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

type shutdowner interface{ Shutdown() error }

type stopper interface{ Stop() }

// shutdown drains in-flight requests before stopping the janitor and the log
// sink those requests may still write to.
func shutdown(app shutdowner, janitorDone chan<- struct{}, sink stopper) {
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(janitorDone)
	sink.Stop()
	sentry.Flush(2 * time.Second)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/student-portal/student_portal/internal/auth"
	"github.com/student-portal/student_portal/internal/config"
	"github.com/student-portal/student_portal/internal/credential"
	"github.com/student-portal/student_portal/internal/middleware"
	"github.com/student-portal/student_portal/internal/notification"
	"github.com/student-portal/student_portal/internal/student"
	"github.com/student-portal/student_portal/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil; Notifier and Bot default to the logger notifier and the HTTP
// bot client from Cfg.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Notifier notification.Notifier
	Bot      verification.Bot
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	repo, err := newRepository(d)
	if err != nil {
		return err
	}
	hasher, err := credential.New(d.Cfg.PasswordMode)
	if err != nil {
		return err
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	bot := d.Bot
	if bot == nil {
		bot = verification.NewHTTPBot(d.Cfg.BotServiceURL, d.Cfg.BotTimeout)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowHeaders: "Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	studentSvc := student.NewService(repo, hasher, notifier, d.Logger)
	authSvc := auth.NewService(repo, hasher, d.Logger)
	coordinator := verification.NewCoordinator(bot, d.Logger)

	RegisterHealthRoutes(app, studentSvc, d.Cache)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterStudentRoutes(api, student.NewHandler(studentSvc))
	RegisterAuthRoutes(api, auth.NewHandler(authSvc), verification.NewHandler(coordinator),
		middleware.RateLimit(d.Cache, "auth", d.Cfg.LoginAttempts, middleware.BodyField("login")),
		middleware.RateLimit(d.Cache, "send-code", d.Cfg.LoginAttempts, middleware.BodyField("handle", "telegram")),
	)

	if d.Cfg.StaticDir != "" {
		app.Static("/", d.Cfg.StaticDir)
	}

	return nil
}

func newRepository(d Deps) (student.Repository, error) {
	switch d.Cfg.StorageBackend {
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when STORAGE_BACKEND=%s", config.BackendPostgres)
		}
		return student.NewPostgresRepository(d.DB), nil
	case config.BackendMemory:
		return student.NewMemoryRepository(), nil
	case config.BackendFile, "":
		repo, err := student.NewFileRepository(d.Cfg.DataFile)
		if err != nil {
			return nil, err
		}
		if d.Logger != nil {
			d.Logger.Info("file storage ready", slog.String("path", repo.Path()))
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", d.Cfg.StorageBackend)
	}
}

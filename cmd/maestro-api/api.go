package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/renderstack/maestro/pkg/report"
	"github.com/renderstack/maestro/pkg/web"
)

type API struct {
	logger   *slog.Logger
	runner   web.WorkflowRunner
	history  report.History
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, runner web.WorkflowRunner, history report.History) *API {
	return &API{
		logger:   logger,
		runner:   runner,
		history:  history,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.runner, a.history, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Maestro API")
	})

	w := app.Group("/workflows")
	w.Post("/", handlers.SubmitWorkflow)
	w.Post("/text", handlers.SubmitText)
	w.Get("/:id", handlers.GetWorkflow)

	app.Get("/history", handlers.ListHistory)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

// Package main provides the Pulse API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/pulsecrm/pulse/pkg/approval"
	"github.com/pulsecrm/pulse/pkg/eventbus"
	"github.com/pulsecrm/pulse/pkg/mailer"
	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/notify"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/registry"
	"github.com/pulsecrm/pulse/pkg/web"
	"github.com/pulsecrm/pulse/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	entities    *models.EntityRegistry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	entities *models.EntityRegistry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		entities:    entities,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	mail := mailer.NewBusMailer(a.eventBus)
	poster := notify.NewBusPoster(a.eventBus)

	workflows := workflow.NewEngine(workflow.Config{
		Rules:    a.persistence.Rules(),
		Registry: a.registry,
		Entities: a.entities,
		Mailer:   mail,
		Poster:   poster,
		Records:  a.persistence.Records(),
		Logger:   a.logger,
	})

	approvals := approval.NewEngine(approval.Config{
		Approvals: a.persistence.Approvals(),
		Records:   a.persistence.Records(),
		Registry:  a.registry,
		Entities:  a.entities,
		Mailer:    mail,
		Poster:    poster,
		Logger:    a.logger,
	})

	handlers := web.NewAPIHandlers(
		a.persistence,
		a.registry,
		a.entities,
		a.validate,
		workflows,
		approvals,
		a.eventBus,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pulse API")
	})

	rules := app.Group("/rules")
	rules.Get("/", handlers.GetRules)
	rules.Post("/", handlers.CreateRule)
	rules.Get("/:id", handlers.GetRule)
	rules.Patch("/:id", handlers.UpdateRule)
	rules.Delete("/:id", handlers.DeleteRule)

	processes := app.Group("/processes")
	processes.Get("/", handlers.GetProcesses)
	processes.Post("/", handlers.CreateProcess)
	processes.Get("/:id", handlers.GetProcess)
	processes.Patch("/:id", handlers.UpdateProcess)
	processes.Delete("/:id", handlers.DeleteProcess)

	records := app.Group("/records")
	records.Post("/", handlers.CreateRecord)
	records.Get("/:entityType/:id", handlers.GetRecord)
	records.Post("/:entityType/:id/events", handlers.RecordEvent)

	approvalRoutes := app.Group("/approvals")
	approvalRoutes.Post("/", handlers.SubmitApproval)
	approvalRoutes.Get("/:id", handlers.GetApproval)
	approvalRoutes.Post("/:id/votes", handlers.CastVote)
	approvalRoutes.Post("/:id/recall", handlers.RecallApproval)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/sudankdk/refix-sandbox/internal/docker"
	"github.com/sudankdk/refix-sandbox/internal/metrics"
	"github.com/sudankdk/refix-sandbox/internal/model"
)

const pingTimeout = 3 * time.Second

func (s *Server) setupRoutes(app *fiber.App) {
	app.Post("/run-test", s.runTestHandler)
	app.Get("/healthz", s.healthHandler)
	if s.opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(s.opts.Gatherer)))
	}
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("refix sandbox running") })
}

// runTestHandler returns the verdict as a 200 for every per-run outcome,
// errors included. Only an unreachable container backend is a 503.
func (s *Server) runTestHandler(c *fiber.Ctx) error {
	var req model.ExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := s.exec.Run(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, docker.ErrBackendUnavailable) {
			s.opts.Logger.Error("run rejected", "err", err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "container backend unavailable")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(result)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	if s.opts.Pinger == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
	defer cancel()
	if err := s.opts.Pinger.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

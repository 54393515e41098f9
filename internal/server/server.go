package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
)

// Server accepts topology and connectivity documents over HTTP and applies
// them to a graph sink. Each request is one ingestion run.
type Server struct {
	app    *fiber.App
	sink   graph.Sink
	opts   ingest.Options
	logger *slog.Logger
}

// New creates an ingest HTTP server. opts.JQ is ignored; clients pass a
// jq query parameter instead.
func New(sink graph.Sink, opts ingest.Options) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{AppName: "aztopo"}),
		sink:   sink,
		opts:   opts,
		logger: slog.Default().With("component", "server"),
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.With("component", "server")
	}

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})
	s.app.Post("/v1/:kind", s.ingest)

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ingest handles POST /v1/topology and POST /v1/connectivity.
func (s *Server) ingest(c fiber.Ctx) error {
	kind, err := ingest.ParseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}
	document := make([]byte, len(body))
	copy(document, body)

	opts := s.opts
	opts.JQ = c.Query("jq")
	opts.Logger = s.logger

	report, err := ingest.Run(c.Context(), s.sink, kind, document, opts)
	switch {
	case err == nil:
		return c.JSON(report)
	case ingest.IsDataError(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"runId": report.RunID,
			"code":  ingest.ErrorCode(err),
			"error": err.Error(),
		})
	case errors.Is(err, ingest.ErrInvalidDocument):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"runId": report.RunID,
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"runId":   report.RunID,
			"applied": report.Applied,
			"error":   err.Error(),
		})
	}
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sudankdk/refix-sandbox/internal/model"
)

// Runner executes one sandbox request. *executer.Executor implements it.
type Runner interface {
	Run(ctx context.Context, req model.ExecutionRequest) (model.ExecutionResult, error)
}

// Pinger reports whether the container backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Pinger       Pinger
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	exec Runner
	opts Options
	app  *fiber.App
}

func NewServer(exec Runner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{exec: exec, opts: opts}

	app := fiber.New(fiber.Config{
		AppName:               "refix-sandbox",
		BodyLimit:             opts.BodyLimit,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	s.setupRoutes(app)
	s.app = app
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully,
// letting in-flight runs finish and clean up within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

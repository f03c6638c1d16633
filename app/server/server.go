package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"rax/app/api"
	"rax/app/middleware"
)

var config = fiber.Config{
	ErrorHandler:          api.ErrorHandler,
	DisableStartupMessage: true,
}

type Deps struct {
	Asker          api.Asker
	StoreBackend   string
	RequestTimeout time.Duration
}

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}

	var (
		app            = fiber.New(config)
		checkHandler   = api.NewCheckHandler(deps.StoreBackend)
		requestHandler = api.NewRequestHandler(deps.Asker, deps.RequestTimeout)
		check          = app.Group("/check")
		apiv1          = app.Group("/api/v1")
	)

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(s.logger))
	app.Use(middleware.IgnoreWellKnown())

	check.Get("/healthy", checkHandler.HandleHealthy)
	app.Get("/ask", requestHandler.HandleAsk)
	apiv1.Post("/ask", requestHandler.HandleRequest)

	s.app = app
	return s
}

// App exposes the router, mainly for app.Test in handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run blocks until the listener fails or Stop is called.
func (s *Server) Run() error {
	s.logger.Info("server started", "addr", s.listenAddr)
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.logger.Info("server stopped")
	return err
}

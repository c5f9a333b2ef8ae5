package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ecologiciel/gemini-rag-master/internal/accounts"
	"github.com/ecologiciel/gemini-rag-master/internal/auth"
	"github.com/ecologiciel/gemini-rag-master/internal/handlers"
	"github.com/ecologiciel/gemini-rag-master/internal/webhook"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(
	addr string,
	log *slog.Logger,
	gate *auth.Gate,
	pingHandler *handlers.PingHandler,
	documentsHandler *handlers.DocumentsHandler,
	settingsHandler *handlers.SettingsHandler,
	usersHandler *handlers.UsersHandler,
	chatHandler *handlers.ChatHandler,
	broadcastHandler *handlers.BroadcastHandler,
	statsHandler *handlers.StatsHandler,
	strategyHandler *handlers.StrategyHandler,
	webhookHandler *webhook.Handler,
) *Server {
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	e.Use(gate.Middleware(func(c echo.Context) bool {
		return shouldSkipAuth(c.Request().URL.Path)
	}))

	adminOnly := auth.RequireRole(accounts.RoleAdmin)

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if webhookHandler != nil {
		webhookHandler.Register(e)
	}
	if documentsHandler != nil {
		documentsHandler.Register(e)
	}
	if settingsHandler != nil {
		settingsHandler.Register(e, adminOnly)
	}
	if usersHandler != nil {
		usersHandler.Register(e, adminOnly)
	}
	if chatHandler != nil {
		chatHandler.Register(e)
	}
	if broadcastHandler != nil {
		broadcastHandler.Register(e, adminOnly)
	}
	if statsHandler != nil {
		statsHandler.Register(e)
	}
	if strategyHandler != nil {
		strategyHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

// shouldSkipAuth lists the routes that carry their own verification or none
// at all: health probes and the channel webhook.
func shouldSkipAuth(path string) bool {
	switch path {
	case "/ping", "/health", "/webhook":
		return true
	}
	return false
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				log.LogAttrs(c.Request().Context(), slog.LevelWarn, "request", attrs...)
				return nil
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

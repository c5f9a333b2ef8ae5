package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/requestlog"
)

// StatsHandler serves the dashboard views mined from the request log.
type StatsHandler struct {
	service *requestlog.Service
	logger  *slog.Logger
}

func NewStatsHandler(log *slog.Logger, service *requestlog.Service) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "stats")),
	}
}

func (h *StatsHandler) Register(e *echo.Echo) {
	e.GET("/stats", h.Stats)
	e.GET("/logs", h.Logs)
	e.GET("/contacts", h.Contacts)
	e.GET("/contacts/:id/sessions", h.Sessions)
}

// Stats godoc
// @Summary Dashboard summary
// @Tags stats
// @Success 200 {object} requestlog.Stats
// @Router /stats [get]
func (h *StatsHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("stats failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Logs godoc
// @Summary Recent exchanges
// @Tags stats
// @Param limit query int false "Max entries"
// @Success 200 {array} requestlog.Entry
// @Router /logs [get]
func (h *StatsHandler) Logs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.service.List(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	if entries == nil {
		entries = []requestlog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// Contacts godoc
// @Summary Conversation partners
// @Tags stats
// @Success 200 {array} requestlog.Contact
// @Router /contacts [get]
func (h *StatsHandler) Contacts(c echo.Context) error {
	contacts, err := h.service.Contacts(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if contacts == nil {
		contacts = []requestlog.Contact{}
	}
	return c.JSON(http.StatusOK, contacts)
}

// Sessions godoc
// @Summary One contact's sessions
// @Tags stats
// @Param id path string true "Contact user ID"
// @Success 200 {array} requestlog.Session
// @Router /contacts/{id}/sessions [get]
func (h *StatsHandler) Sessions(c echo.Context) error {
	sessions, err := h.service.Sessions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if sessions == nil {
		sessions = []requestlog.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/settings"
)

// SettingsHandler exposes the singleton configuration row. Writes are
// restricted to admins by the route middleware.
type SettingsHandler struct {
	service *settings.Service
	logger  *slog.Logger
}

func NewSettingsHandler(log *slog.Logger, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "settings")),
	}
}

func (h *SettingsHandler) Register(e *echo.Echo, adminOnly echo.MiddlewareFunc) {
	e.GET("/settings", h.Get)
	e.PUT("/settings", h.Update, adminOnly)
}

// Get godoc
// @Summary Get console settings
// @Description Secret fields are masked; only the last four characters show.
// @Tags settings
// @Success 200 {object} settings.Settings
// @Router /settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	view, err := h.service.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("settings read failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// Update godoc
// @Summary Update console settings
// @Description Masked or empty secret values keep the stored secret.
// @Tags settings
// @Param payload body settings.UpsertRequest true "Settings payload"
// @Success 200 {object} settings.Settings
// @Failure 400 {object} ErrorResponse
// @Router /settings [put]
func (h *SettingsHandler) Update(c echo.Context) error {
	var req settings.UpsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	view, err := h.service.Upsert(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("settings update failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

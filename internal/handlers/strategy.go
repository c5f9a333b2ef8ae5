package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/relay"
)

// StrategyHandler turns a campaign brief into marketing copy.
type StrategyHandler struct {
	service *relay.Service
	logger  *slog.Logger
}

func NewStrategyHandler(log *slog.Logger, service *relay.Service) *StrategyHandler {
	return &StrategyHandler{
		service: service,
		logger:  log.With(slog.String("handler", "strategy")),
	}
}

func (h *StrategyHandler) Register(e *echo.Echo) {
	e.POST("/strategy", h.Generate)
}

type strategyRequest struct {
	Brief string `json:"brief" validate:"required"`
}

type strategyResponse struct {
	Content string `json:"content"`
}

// Generate godoc
// @Summary Generate marketing copy
// @Description Runs the brief through the marketing prompt, without
// document grounding.
// @Tags strategy
// @Param payload body strategyRequest true "Campaign brief"
// @Success 200 {object} strategyResponse
// @Failure 400 {object} ErrorResponse
// @Router /strategy [post]
func (h *StrategyHandler) Generate(c echo.Context) error {
	var req strategyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	content, err := h.service.Strategy(c.Request().Context(), req.Brief)
	if err != nil {
		h.logger.Error("strategy failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, strategyResponse{Content: content})
}

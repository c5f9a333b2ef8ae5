package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/auth"
	"github.com/ecologiciel/gemini-rag-master/internal/relay"
	"github.com/ecologiciel/gemini-rag-master/internal/requestlog"
)

// ChatHandler runs console chat exchanges through the relay.
type ChatHandler struct {
	service *relay.Service
	logger  *slog.Logger
}

func NewChatHandler(log *slog.Logger, service *relay.Service) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  log.With(slog.String("handler", "chat")),
	}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.POST("/chat", h.Chat)
}

type chatRequest struct {
	Message string             `json:"message"`
	Media   *relay.InlineMedia `json:"media,omitempty"`
}

// Chat godoc
// @Summary Ask the assistant
// @Description Runs one completion grounded on the active documents.
// Optional inline media rides along base64 encoded.
// @Tags chat
// @Param payload body chatRequest true "Chat payload"
// @Success 200 {object} relay.ChatResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Message == "" && req.Media == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "message or media is required")
	}

	input := relay.ChatInput{
		Query:   req.Message,
		Media:   req.Media,
		Channel: requestlog.ChannelConsole,
	}
	if identity, ok := auth.IdentityFrom(c); ok {
		input.UserID = identity.UserID
	}

	result, err := h.service.Chat(c.Request().Context(), input)
	if err != nil {
		h.logger.Error("chat failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/relay"
	"github.com/ecologiciel/gemini-rag-master/internal/whatsapp"
)

// BroadcastHandler runs outbound campaigns. Admin only.
type BroadcastHandler struct {
	broadcaster *relay.Broadcaster
	logger      *slog.Logger
}

func NewBroadcastHandler(log *slog.Logger, broadcaster *relay.Broadcaster) *BroadcastHandler {
	return &BroadcastHandler{
		broadcaster: broadcaster,
		logger:      log.With(slog.String("handler", "broadcast")),
	}
}

func (h *BroadcastHandler) Register(e *echo.Echo, adminOnly echo.MiddlewareFunc) {
	e.POST("/broadcast", h.Send, adminOnly)
}

type broadcastRequest struct {
	Recipients []string           `json:"recipients" validate:"required,min=1,dive,required"`
	Message    string             `json:"message"`
	Template   *whatsapp.Template `json:"template,omitempty"`
}

// Send godoc
// @Summary Send a broadcast
// @Description Sends the message to every recipient sequentially and
// returns the per-recipient report. Recipients outside the 24 hour window
// are reported, not retried.
// @Tags broadcast
// @Param payload body broadcastRequest true "Broadcast payload"
// @Success 200 {object} relay.Report
// @Failure 400 {object} ErrorResponse
// @Router /broadcast [post]
func (h *BroadcastHandler) Send(c echo.Context) error {
	var req broadcastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Message == "" && req.Template == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "message or template is required")
	}

	report, err := h.broadcaster.Broadcast(c.Request().Context(), relay.BroadcastInput{
		Recipients: req.Recipients,
		Text:       req.Message,
		Template:   req.Template,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// Package webhook receives WhatsApp Cloud API callbacks and relays inbound
// messages through the completion service.
package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/cache"
	"github.com/ecologiciel/gemini-rag-master/internal/relay"
	"github.com/ecologiciel/gemini-rag-master/internal/requestlog"
	"github.com/ecologiciel/gemini-rag-master/internal/whatsapp"
)

const (
	webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB
	processTimeout            = 2 * time.Minute
	seenTTL                   = 24 * time.Hour

	// apologyText is what the sender gets when anything in the pipeline
	// fails for their message.
	apologyText = "Sorry, something went wrong while answering your message. Please try again in a moment."
)

// Responder answers inbound questions. Satisfied by *relay.Service.
type Responder interface {
	Chat(ctx context.Context, input relay.ChatInput) (relay.ChatResult, error)
}

// Messenger is the slice of the messaging client the webhook needs.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (whatsapp.SendResult, error)
	SendReaction(ctx context.Context, to, messageID, emoji string) (whatsapp.SendResult, error)
	MarkRead(ctx context.Context, messageID string) error
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, whatsapp.MediaInfo, error)
}

// SecretSource resolves the handshake token and signature secret at request
// time so console edits apply without a restart.
type SecretSource interface {
	VerifyToken(ctx context.Context) string
	AppSecret(ctx context.Context) string
}

// Handler owns the webhook routes.
type Handler struct {
	responder Responder
	messenger Messenger
	secrets   SecretSource
	seen      *cache.Cache
	handshake *Handshake
	logger    *slog.Logger
}

func NewHandler(log *slog.Logger, responder Responder, messenger Messenger, secrets SecretSource, seen *cache.Cache) *Handler {
	return &Handler{
		responder: responder,
		messenger: messenger,
		secrets:   secrets,
		seen:      seen,
		handshake: &Handshake{},
		logger:    log.With(slog.String("handler", "whatsapp_webhook")),
	}
}

// Register registers webhook callback routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/webhook", h.HandleVerify)
	e.POST("/webhook", h.HandleEvent)
}

// HandleVerify answers the platform's subscription handshake.
//
//	GET /webhook?hub.mode=subscribe&hub.verify_token=...&hub.challenge=...
//
// A matching verify token echoes the challenge and moves the endpoint to the
// accepting phase; anything else is refused.
func (h *Handler) HandleVerify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	expected := h.secrets.VerifyToken(c.Request().Context())
	if mode != "subscribe" || expected == "" || token != expected {
		h.logger.Warn("webhook verification refused", slog.String("mode", mode))
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}

	h.handshake.markVerified()
	h.logger.Info("webhook verified", slog.String("phase", h.handshake.Phase().String()))
	return c.String(http.StatusOK, challenge)
}

// HandleEvent ingests an event batch. The platform retries deliveries that
// are not acknowledged quickly, so the handler always answers 200 right away
// and processes the batch in the background; per-message failures turn into
// apology replies, never into an error response.
func (h *Handler) HandleEvent(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil || int64(len(body)) > webhookMaxBodyBytes {
		return c.NoContent(http.StatusOK)
	}

	secret := h.secrets.AppSecret(c.Request().Context())
	if !ValidSignature(secret, body, c.Request().Header.Get("X-Hub-Signature-256")) {
		h.logger.Warn("webhook signature mismatch")
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("webhook payload unreadable", slog.String("error", err.Error()))
		return c.NoContent(http.StatusOK)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		h.Process(ctx, event)
	}()

	return c.NoContent(http.StatusOK)
}

// Process walks the event batch sequentially. Messages are independent: one
// failing never stops the rest.
func (h *Handler) Process(ctx context.Context, event Event) {
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, msg := range change.Value.Messages {
				h.handleMessage(ctx, msg)
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg Message) {
	if msg.From == "" || msg.ID == "" {
		return
	}
	if !h.seen.MarkSeen(ctx, "wamid:"+msg.ID, seenTTL) {
		h.logger.Debug("duplicate delivery skipped", slog.String("message_id", msg.ID))
		return
	}

	log := h.logger.With(slog.String("message_id", msg.ID), slog.String("from", msg.From))

	// Courtesy signals; their failure is irrelevant to the answer.
	if err := h.messenger.MarkRead(ctx, msg.ID); err != nil {
		log.Debug("mark read failed", slog.String("error", err.Error()))
	}
	if msg.Type == "image" || msg.Type == "audio" {
		if _, err := h.messenger.SendReaction(ctx, msg.From, msg.ID, "\U0001F44D"); err != nil {
			log.Debug("reaction failed", slog.String("error", err.Error()))
		}
	}

	input, err := h.buildInput(ctx, msg)
	if err != nil {
		log.Warn("message preparation failed", slog.String("error", err.Error()))
		h.apologize(ctx, msg.From)
		return
	}

	result, err := h.responder.Chat(ctx, input)
	if err != nil {
		log.Warn("relay failed", slog.String("error", err.Error()))
		h.apologize(ctx, msg.From)
		return
	}

	if _, err := h.messenger.SendText(ctx, msg.From, result.Text); err != nil {
		log.Warn("reply send failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) buildInput(ctx context.Context, msg Message) (relay.ChatInput, error) {
	input := relay.ChatInput{
		Channel: requestlog.ChannelWhatsApp,
		UserID:  msg.From,
	}

	switch {
	case msg.Type == "text" && msg.Text != nil:
		input.Query = msg.Text.Body
	case msg.media() != nil:
		media := msg.media()
		data, info, err := h.messenger.DownloadMedia(ctx, media.ID)
		if err != nil {
			return relay.ChatInput{}, fmt.Errorf("download media: %w", err)
		}
		input.Media = &relay.InlineMedia{
			MIMEType: info.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}
		input.Query = media.Caption
	default:
		return relay.ChatInput{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}
	return input, nil
}

func (h *Handler) apologize(ctx context.Context, to string) {
	if _, err := h.messenger.SendText(ctx, to, apologyText); err != nil {
		h.logger.Warn("apology send failed",
			slog.String("to", to),
			slog.String("error", err.Error()))
	}
}

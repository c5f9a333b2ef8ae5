// Package whatsapp is a REST client for the WhatsApp Cloud API: outbound
// messages through the phone number's /messages endpoint plus inbound media
// retrieval.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client sends messages on behalf of one business phone number.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	mediaMaxBytes int64
	httpClient    *http.Client
	log           *slog.Logger
}

// Options configures NewClient.
type Options struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	MediaMaxBytes int64
	Timeout       time.Duration
}

func NewClient(log *slog.Logger, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if opts.MediaMaxBytes <= 0 {
		opts.MediaMaxBytes = 16 * 1024 * 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		accessToken:   opts.AccessToken,
		phoneNumberID: opts.PhoneNumberID,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		mediaMaxBytes: opts.MediaMaxBytes,
		httpClient:    &http.Client{Timeout: opts.Timeout},
		log:           log.With(slog.String("service", "whatsapp")),
	}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		ErrorData struct {
			Details string `json:"details"`
		} `json:"error_data"`
		TraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendText delivers a plain text message to a phone number in E.164 form.
func (c *Client) SendText(ctx context.Context, to, body string) (SendResult, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        body,
		},
	}
	return c.sendMessage(ctx, payload)
}

// SendTemplate delivers a pre-approved template message. Templates are the
// only way to reach recipients outside the 24 hour service window.
func (c *Client) SendTemplate(ctx context.Context, to string, tpl Template) (SendResult, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":       tpl.Name,
			"language":   map[string]string{"code": tpl.Language},
			"components": tpl.Components,
		},
	}
	return c.sendMessage(ctx, payload)
}

// SendReaction attaches an emoji reaction to a received message. An empty
// emoji removes a previous reaction.
func (c *Client) SendReaction(ctx context.Context, to, messageID, emoji string) (SendResult, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "reaction",
		"reaction": map[string]string{
			"message_id": messageID,
			"emoji":      emoji,
		},
	}
	return c.sendMessage(ctx, payload)
}

// MarkRead flags an inbound message as read so the sender sees blue ticks.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	_, err := c.sendMessage(ctx, payload)
	return err
}

func (c *Client) sendMessage(ctx context.Context, payload map[string]any) (SendResult, error) {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	var resp sendResponse
	if err := c.doJSON(ctx, http.MethodPost, url, payload, &resp); err != nil {
		return SendResult{}, err
	}
	result := SendResult{}
	if len(resp.Messages) > 0 {
		result.MessageID = resp.Messages[0].ID
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call whatsapp api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		_ = json.Unmarshal(data, &envelope)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Type:       envelope.Error.Type,
			Message:    envelope.Error.Message,
			Details:    envelope.Error.ErrorData.Details,
			TraceID:    envelope.Error.TraceID,
		}
		c.log.Warn("whatsapp api error",
			slog.Int("status", resp.StatusCode),
			slog.Int("code", apiErr.Code),
			slog.String("message", apiErr.Message))
		return classifyError(apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package genai is a thin REST client for the hosted model API: completion
// calls plus the provider file store used for document grounding.
package genai

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

const defaultTimeout = 60 * time.Second

// Client talks to the model API with a fixed key. Build a new one through
// Handle.Reload when the key changes.
type Client struct {
	apiKey        string
	baseURL       string
	uploadBaseURL string
	httpClient    *http.Client
	log           *slog.Logger
}

// Options configures NewClient. BaseURL and UploadBaseURL fall back to the
// public endpoints when empty.
type Options struct {
	APIKey        string
	BaseURL       string
	UploadBaseURL string
	Timeout       time.Duration
}

func NewClient(log *slog.Logger, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if opts.UploadBaseURL == "" {
		opts.UploadBaseURL = "https://generativelanguage.googleapis.com/upload/v1beta"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:        opts.APIKey,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		uploadBaseURL: strings.TrimRight(opts.UploadBaseURL, "/"),
		httpClient:    &http.Client{Timeout: opts.Timeout},
		log:           log.With(slog.String("service", "genai")),
	}
}

type generateRequest struct {
	SystemInstruction *Content  `json:"system_instruction,omitempty"`
	Contents          []Content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent runs one completion call and returns the concatenated text
// of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, input GenerateInput) (string, error) {
	if input.Model == "" {
		return "", fmt.Errorf("model is required")
	}
	reqBody := generateRequest{Contents: input.Contents}
	if input.SystemInstruction != "" {
		reqBody.SystemInstruction = &Content{Parts: []Part{TextPart(input.SystemInstruction)}}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, input.Model, c.apiKey)
	var resp generateResponse
	if err := c.doJSON(ctx, http.MethodPost, url, reqBody, &resp); err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// doJSON sends an optional JSON body and decodes a JSON response, translating
// non-2xx answers through the error taxonomy.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call model api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		_ = json.Unmarshal(data, &envelope)
		c.log.Warn("model api error",
			slog.Int("status", resp.StatusCode),
			slog.String("message", envelope.Error.Message))
		return classifyError(resp.StatusCode, envelope.Error.Status, envelope.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package genai

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Handle is a swap cell for the model API client. The settings console can
// change the stored API key at runtime; callers always read the current
// client through Client and the settings service swaps it through Reload.
type Handle struct {
	mu     sync.RWMutex
	client *Client
	opts   Options
	log    *slog.Logger
}

func NewHandle(log *slog.Logger, opts Options) *Handle {
	return &Handle{
		client: NewClient(log, opts),
		opts:   opts,
		log:    log,
	}
}

// Client returns the current client. The returned value stays valid after a
// Reload; in-flight calls finish against the key they started with.
func (h *Handle) Client() *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client
}

// The delegation methods below let consumers hold the handle behind their
// own small interfaces while still following key reloads.

func (h *Handle) GenerateContent(ctx context.Context, input GenerateInput) (string, error) {
	return h.Client().GenerateContent(ctx, input)
}

func (h *Handle) UploadFile(ctx context.Context, displayName, mimeType string, data io.Reader) (File, error) {
	return h.Client().UploadFile(ctx, displayName, mimeType, data)
}

func (h *Handle) GetFile(ctx context.Context, name string) (File, error) {
	return h.Client().GetFile(ctx, name)
}

func (h *Handle) DeleteFile(ctx context.Context, name string) error {
	return h.Client().DeleteFile(ctx, name)
}

// Reload rebuilds the client with a new API key. A no-op when the key is
// unchanged or empty.
func (h *Handle) Reload(apiKey string) {
	if apiKey == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if apiKey == h.opts.APIKey {
		return
	}
	h.opts.APIKey = apiKey
	h.client = NewClient(h.log, h.opts)
	h.log.Info("model api client reloaded")
}

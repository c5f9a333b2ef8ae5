package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// UploadFile pushes raw bytes into the provider file store through the
// multipart media endpoint. The returned file usually starts in PROCESSING;
// callers poll GetFile until it settles.
func (c *Client) UploadFile(ctx context.Context, displayName, mimeType string, data io.Reader) (File, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return File{}, fmt.Errorf("build metadata part: %w", err)
	}
	fmt.Fprintf(metaPart, `{"file":{"display_name":%q}}`, displayName)

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := writer.CreatePart(mediaHeader)
	if err != nil {
		return File{}, fmt.Errorf("build media part: %w", err)
	}
	if _, err := io.Copy(mediaPart, data); err != nil {
		return File{}, fmt.Errorf("copy media: %w", err)
	}
	if err := writer.Close(); err != nil {
		return File{}, fmt.Errorf("finish multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/files?uploadType=multipart&key=%s", c.uploadBaseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body.String()))
	if err != nil {
		return File{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	var resp struct {
		File File `json:"file"`
	}
	if err := c.send(req, &resp); err != nil {
		return File{}, fmt.Errorf("upload file: %w", err)
	}
	return resp.File, nil
}

// GetFile fetches the current state of a file-store object. name is the
// provider handle, e.g. "files/abc123".
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, name, c.apiKey)
	var file File
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &file); err != nil {
		return File{}, fmt.Errorf("get file %s: %w", name, err)
	}
	return file, nil
}

// DeleteFile removes a file-store object. Used for ingest rollback and by the
// stale-handle sweeper; a 404 from the provider is treated as success since
// provider files expire on their own.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, name, c.apiKey)
	err := c.doJSON(ctx, http.MethodDelete, url, nil, nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("delete file %s: %w", name, err)
}

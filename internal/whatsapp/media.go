package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// GetMediaInfo resolves a media ID from an inbound message into its download
// metadata. The returned URL is short-lived.
func (c *Client) GetMediaInfo(ctx context.Context, mediaID string) (MediaInfo, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	var info MediaInfo
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &info); err != nil {
		return MediaInfo{}, fmt.Errorf("get media %s: %w", mediaID, err)
	}
	return info, nil
}

// DownloadMedia fetches media bytes through GetMediaInfo. Downloads larger
// than the configured ceiling fail with ErrMediaTooLarge; the reported
// file_size is checked first so oversized media is refused before any bytes
// move.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, MediaInfo, error) {
	info, err := c.GetMediaInfo(ctx, mediaID)
	if err != nil {
		return nil, MediaInfo{}, err
	}
	if info.FileSize > c.mediaMaxBytes {
		return nil, info, fmt.Errorf("%w: %d bytes (limit %d)", ErrMediaTooLarge, info.FileSize, c.mediaMaxBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, info, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, info, fmt.Errorf("download media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, info, &APIError{StatusCode: resp.StatusCode, Message: "media download failed"}
	}

	// The metadata size is advisory; enforce the ceiling on the stream too.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.mediaMaxBytes+1))
	if err != nil {
		return nil, info, fmt.Errorf("read media %s: %w", mediaID, err)
	}
	if int64(len(data)) > c.mediaMaxBytes {
		return nil, info, fmt.Errorf("%w: body exceeds %d bytes", ErrMediaTooLarge, c.mediaMaxBytes)
	}
	return data, info, nil
}

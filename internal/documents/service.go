// Package documents manages the knowledge files grounding chat answers: a
// metadata row per file locally, the bytes in the model provider's file
// store.
package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ecologiciel/gemini-rag-master/internal/genai"
	"github.com/ecologiciel/gemini-rag-master/internal/retry"
)

// MaxDocumentBytes is the default upload ceiling.
const MaxDocumentBytes = 20 * 1024 * 1024

// FileStore is the slice of the provider file API the service needs.
// Satisfied by *genai.Handle.
type FileStore interface {
	UploadFile(ctx context.Context, displayName, mimeType string, data io.Reader) (genai.File, error)
	GetFile(ctx context.Context, name string) (genai.File, error)
	DeleteFile(ctx context.Context, name string) error
}

// PollConfig bounds the wait for provider-side file activation.
type PollConfig struct {
	Attempts int
	Interval time.Duration
}

type Service struct {
	repo   Repository
	store  FileStore
	poll   PollConfig
	logger *slog.Logger
}

func NewService(log *slog.Logger, repo Repository, store FileStore, poll PollConfig) *Service {
	if poll.Attempts <= 0 {
		poll.Attempts = 30
	}
	if poll.Interval <= 0 {
		poll.Interval = 2 * time.Second
	}
	return &Service{
		repo:   repo,
		store:  store,
		poll:   poll,
		logger: log.With(slog.String("service", "documents")),
	}
}

// Ingest hashes and stores one upload. Duplicate content returns the
// existing record together with ErrDuplicate. New content is pushed to the
// provider file store and the metadata row is written only after the
// provider reports the file active; a failed row write rolls the provider
// file back.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (Document, error) {
	if input.Reader == nil {
		return Document{}, fmt.Errorf("reader is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Document{}, fmt.Errorf("document name is required")
	}
	maxBytes := input.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxDocumentBytes
	}

	contentHash, data, err := spoolAndHash(input.Reader, maxBytes)
	if err != nil {
		return Document{}, err
	}

	// Dedup: only upload when the hash is truly unknown; propagate other
	// repository errors.
	existing, err := s.repo.GetByHash(ctx, contentHash)
	if err == nil {
		existing.Status = StatusDuplicate
		return existing, ErrDuplicate
	}
	if !errors.Is(err, ErrNotFound) {
		return Document{}, fmt.Errorf("check existing document: %w", err)
	}

	mime := input.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	file, err := s.store.UploadFile(ctx, name, mime, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("upload to provider: %w", err)
	}

	if err := s.awaitActive(ctx, &file); err != nil {
		s.rollbackProviderFile(ctx, file.Name)
		return Document{}, err
	}

	doc := Document{
		Name:         name,
		ContentHash:  contentHash,
		ProviderName: file.Name,
		ProviderURI:  file.URI,
		MimeType:     mime,
		SizeBytes:    int64(len(data)),
		Status:       StatusSuccess,
	}
	saved, err := s.repo.Insert(ctx, doc)
	if err != nil {
		// The provider copy must not outlive a failed metadata write.
		s.rollbackProviderFile(ctx, file.Name)
		return Document{}, fmt.Errorf("persist document: %w", err)
	}

	s.logger.Info("document ingested",
		slog.String("id", saved.ID),
		slog.String("name", saved.Name),
		slog.Int64("size_bytes", saved.SizeBytes))
	return saved, nil
}

// Delete removes the provider copy first, then the metadata row. A provider
// delete failure is logged but does not keep the row alive; provider files
// expire on their own.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.ProviderName != "" {
		if err := s.store.DeleteFile(ctx, doc.ProviderName); err != nil {
			s.logger.Warn("provider delete failed",
				slog.String("id", id),
				slog.String("provider_name", doc.ProviderName),
				slog.String("error", err.Error()))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", slog.String("id", id), slog.String("name", doc.Name))
	return nil
}

// List returns all document rows, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// ListActive returns the documents eligible for chat grounding: successfully
// ingested with a live provider reference.
func (s *Service) ListActive(ctx context.Context) ([]Document, error) {
	docs, err := s.repo.ListByStatus(ctx, StatusSuccess)
	if err != nil {
		return nil, err
	}
	active := docs[:0]
	for _, doc := range docs {
		if doc.ProviderURI != "" {
			active = append(active, doc)
		}
	}
	return active, nil
}

// MarkUsed bumps the usage counter after a document was included in a
// prompt. Failures are logged only; usage accounting never fails a chat.
func (s *Service) MarkUsed(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.repo.IncrementUsage(ctx, id); err != nil {
			s.logger.Warn("usage bump failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
}

// awaitActive polls provider file state until it settles.
func (s *Service) awaitActive(ctx context.Context, file *genai.File) error {
	if file.State == genai.FileStateActive {
		return nil
	}
	err := retry.Poll(ctx, s.poll.Attempts, s.poll.Interval, func(ctx context.Context) (bool, error) {
		current, err := s.store.GetFile(ctx, file.Name)
		if err != nil {
			return false, fmt.Errorf("check provider file: %w", err)
		}
		switch current.State {
		case genai.FileStateActive:
			*file = current
			return true, nil
		case genai.FileStateFailed:
			return false, fmt.Errorf("%w: %s", genai.ErrFileFailed, file.Name)
		default:
			return false, nil
		}
	})
	if err != nil {
		if errors.Is(err, retry.ErrPollTimeout) {
			return fmt.Errorf("provider file %s not active: %w", file.Name, err)
		}
		return err
	}
	return nil
}

func (s *Service) rollbackProviderFile(ctx context.Context, name string) {
	if err := s.store.DeleteFile(ctx, name); err != nil {
		s.logger.Warn("provider rollback failed",
			slog.String("provider_name", name),
			slog.String("error", err.Error()))
	}
}

// spoolAndHash buffers the upload while hashing it, refusing streams over
// the ceiling.
func spoolAndHash(r io.Reader, maxBytes int64) (string, []byte, error) {
	hasher := sha256.New()
	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, hasher), io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("read input: %w", err)
	}
	if n == 0 {
		return "", nil, ErrEmpty
	}
	if n > maxBytes {
		return "", nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxBytes)
	}
	return hex.EncodeToString(hasher.Sum(nil)), buf.Bytes(), nil
}

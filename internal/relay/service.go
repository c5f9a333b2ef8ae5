// Package relay connects inbound questions to the hosted model API: it
// assembles the grounding context, runs the completion with bounded retries
// and records every exchange.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ecologiciel/gemini-rag-master/internal/documents"
	"github.com/ecologiciel/gemini-rag-master/internal/genai"
	"github.com/ecologiciel/gemini-rag-master/internal/requestlog"
	"github.com/ecologiciel/gemini-rag-master/internal/retry"
)

// Completer is the slice of the model API the relay needs. Satisfied by
// *genai.Handle so key reloads take effect between calls.
type Completer interface {
	GenerateContent(ctx context.Context, input genai.GenerateInput) (string, error)
}

// DocumentSource provides the grounding documents.
type DocumentSource interface {
	ListActive(ctx context.Context) ([]documents.Document, error)
	MarkUsed(ctx context.Context, ids []string)
}

// PromptSource resolves the configured prompts.
type PromptSource interface {
	SystemPrompt(ctx context.Context) string
	MarketingPrompt(ctx context.Context) string
}

type Service struct {
	completer Completer
	docs      DocumentSource
	prompts   PromptSource
	logs      *requestlog.Service
	model     string
	policy    retry.Policy
	logger    *slog.Logger
}

func NewService(log *slog.Logger, completer Completer, docs DocumentSource, prompts PromptSource, logs *requestlog.Service, model string, policy retry.Policy) *Service {
	return &Service{
		completer: completer,
		docs:      docs,
		prompts:   prompts,
		logs:      logs,
		model:     model,
		policy:    policy,
		logger:    log.With(slog.String("service", "relay")),
	}
}

// Chat answers one question. The prompt is assembled in a fixed order:
// active documents as file references, then attached media, then the user
// text. Transient upstream errors are retried; credential errors fail at
// once. Success or failure, the exchange lands in the request log.
func (s *Service) Chat(ctx context.Context, input ChatInput) (ChatResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" && input.Media == nil {
		return ChatResult{}, fmt.Errorf("query or media is required")
	}

	parts, docIDs, err := s.buildParts(ctx, query, input.Media)
	if err != nil {
		return ChatResult{}, err
	}

	text, err := s.generate(ctx, genai.GenerateInput{
		Model:             s.model,
		SystemInstruction: s.prompts.SystemPrompt(ctx),
		Contents:          []genai.Content{{Role: "user", Parts: parts}},
	})

	entry := requestlog.Entry{
		Channel: input.Channel,
		Query:   query,
		UserID:  input.UserID,
		Success: err == nil,
	}
	if err != nil {
		entry.Response = err.Error()
		s.logs.Append(ctx, entry)
		return ChatResult{}, err
	}
	entry.Response = text
	s.logs.Append(ctx, entry)

	s.docs.MarkUsed(ctx, docIDs)
	return ChatResult{Text: text, DocumentIDs: docIDs}, nil
}

// Strategy generates marketing copy from the stored marketing prompt. No
// document grounding; the prompt alone steers the output.
func (s *Service) Strategy(ctx context.Context, brief string) (string, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return "", fmt.Errorf("brief is required")
	}

	text, err := s.generate(ctx, genai.GenerateInput{
		Model:             s.model,
		SystemInstruction: s.prompts.MarketingPrompt(ctx),
		Contents:          []genai.Content{{Role: "user", Parts: []genai.Part{genai.TextPart(brief)}}},
	})

	s.logs.Append(ctx, requestlog.Entry{
		Channel:  requestlog.ChannelConsole,
		Query:    brief,
		Response: firstNonEmptyString(text, errText(err)),
		Success:  err == nil,
	})
	return text, err
}

// generate runs one completion through the retry policy. Credential errors
// and other permanent failures short-circuit; only transient upstream
// trouble is retried.
func (s *Service) generate(ctx context.Context, input genai.GenerateInput) (string, error) {
	var text string
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		result, err := s.completer.GenerateContent(ctx, input)
		if err != nil {
			if errors.Is(err, genai.ErrInvalidCredentials) {
				return retry.Permanent(err)
			}
			if genai.IsTransient(err) {
				s.logger.Warn("completion attempt failed, will retry", slog.String("error", err.Error()))
				return err
			}
			return retry.Permanent(err)
		}
		text = result
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return text, nil
}

func (s *Service) buildParts(ctx context.Context, query string, media *InlineMedia) ([]genai.Part, []string, error) {
	docs, err := s.docs.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}

	var parts []genai.Part
	var docIDs []string
	for _, doc := range docs {
		parts = append(parts, genai.FilePart(doc.MimeType, doc.ProviderURI))
		docIDs = append(docIDs, doc.ID)
	}
	if media != nil {
		parts = append(parts, genai.InlinePart(media.MIMEType, media.Data))
	}
	if query != "" {
		parts = append(parts, genai.TextPart(query))
	}
	return parts, docIDs, nil
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const maskRunes = "••••"

// KeyReloader rebuilds the model API client when the stored key changes.
type KeyReloader interface {
	Reload(apiKey string)
}

// Fallbacks are the config/env values used when the settings row leaves a
// credential empty. Row values win over these at every call.
type Fallbacks struct {
	GeminiAPIKey          string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WebhookVerifyToken    string
	AppSecret             string
}

type Service struct {
	repo      Repository
	reloader  KeyReloader
	fallbacks Fallbacks
	logger    *slog.Logger
}

func NewService(log *slog.Logger, repo Repository, reloader KeyReloader, fallbacks Fallbacks) *Service {
	return &Service{
		repo:      repo,
		reloader:  reloader,
		fallbacks: fallbacks,
		logger:    log.With(slog.String("service", "settings")),
	}
}

// Get returns the settings row with all secret fields masked. A missing row
// yields zero-value settings rather than an error; the console renders an
// empty form.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	return masked(row), nil
}

// Upsert merges req into the stored row and returns the masked result.
// Secret fields submitted empty or still masked are kept as stored, so the
// console can send back the view it was given without wiping credentials.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (Settings, error) {
	current, err := s.repo.Get(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Settings{}, err
	}

	previousKey := current.GeminiAPIKey

	if req.SystemPrompt != nil {
		current.SystemPrompt = strings.TrimSpace(*req.SystemPrompt)
	}
	if req.MarketingPrompt != nil {
		current.MarketingPrompt = strings.TrimSpace(*req.MarketingPrompt)
	}
	applySecret(&current.GeminiAPIKey, req.GeminiAPIKey)
	applySecret(&current.WhatsAppAccessToken, req.WhatsAppAccessToken)
	applySecret(&current.AppSecret, req.AppSecret)
	applySecret(&current.WebhookVerifyToken, req.WebhookVerifyToken)
	if req.WhatsAppPhoneNumberID != nil && strings.TrimSpace(*req.WhatsAppPhoneNumberID) != "" {
		current.WhatsAppPhoneNumberID = strings.TrimSpace(*req.WhatsAppPhoneNumberID)
	}

	saved, err := s.repo.Save(ctx, current)
	if err != nil {
		return Settings{}, err
	}

	if s.reloader != nil && saved.GeminiAPIKey != "" && saved.GeminiAPIKey != previousKey {
		s.reloader.Reload(saved.GeminiAPIKey)
		s.logger.Info("model api key updated, client reloaded")
	}
	return masked(saved), nil
}

// SystemPrompt returns the stored assistant prompt or the built-in default.
func (s *Service) SystemPrompt(ctx context.Context) string {
	row, err := s.repo.Get(ctx)
	if err != nil || strings.TrimSpace(row.SystemPrompt) == "" {
		return DefaultSystemPrompt
	}
	return row.SystemPrompt
}

// MarketingPrompt returns the stored marketing prompt or the built-in default.
func (s *Service) MarketingPrompt(ctx context.Context) string {
	row, err := s.repo.Get(ctx)
	if err != nil || strings.TrimSpace(row.MarketingPrompt) == "" {
		return DefaultMarketingPrompt
	}
	return row.MarketingPrompt
}

// Credentials resolves each credential settings-row first, config/env second.
func (s *Service) Credentials(ctx context.Context) Fallbacks {
	row, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("settings read failed, using config fallbacks", slog.String("error", err.Error()))
		}
		return s.fallbacks
	}
	return Fallbacks{
		GeminiAPIKey:          firstNonEmpty(row.GeminiAPIKey, s.fallbacks.GeminiAPIKey),
		WhatsAppAccessToken:   firstNonEmpty(row.WhatsAppAccessToken, s.fallbacks.WhatsAppAccessToken),
		WhatsAppPhoneNumberID: firstNonEmpty(row.WhatsAppPhoneNumberID, s.fallbacks.WhatsAppPhoneNumberID),
		WebhookVerifyToken:    firstNonEmpty(row.WebhookVerifyToken, s.fallbacks.WebhookVerifyToken),
		AppSecret:             firstNonEmpty(row.AppSecret, s.fallbacks.AppSecret),
	}
}

// VerifyToken resolves the webhook handshake token.
func (s *Service) VerifyToken(ctx context.Context) string {
	return s.Credentials(ctx).WebhookVerifyToken
}

// AppSecret resolves the webhook signature secret.
func (s *Service) AppSecret(ctx context.Context) string {
	return s.Credentials(ctx).AppSecret
}

func applySecret(target *string, submitted *string) {
	if submitted == nil {
		return
	}
	value := strings.TrimSpace(*submitted)
	if value == "" || IsMasked(value) {
		return
	}
	*target = value
}

// IsMasked reports whether value is a masked view produced by this package.
func IsMasked(value string) bool {
	return strings.HasPrefix(value, maskRunes)
}

// Mask hides a secret, keeping the last four characters for recognition.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return maskRunes
	}
	return fmt.Sprintf("%s%s", maskRunes, value[len(value)-4:])
}

func masked(s Settings) Settings {
	s.GeminiAPIKey = Mask(s.GeminiAPIKey)
	s.WhatsAppAccessToken = Mask(s.WhatsAppAccessToken)
	s.WebhookVerifyToken = Mask(s.WebhookVerifyToken)
	s.AppSecret = Mask(s.AppSecret)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

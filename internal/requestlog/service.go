// Package requestlog records every relay exchange and mines the log for the
// console's contacts, sessions and dashboard views. There is no separate
// conversation store; the log is the source of truth.
package requestlog

import (
	"context"
	"log/slog"
	"time"
)

// SessionGap separates two sessions of the same user.
const SessionGap = 30 * time.Minute

// DefaultListLimit caps the recent-entries view.
const DefaultListLimit = 100

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{
		repo:   repo,
		logger: log.With(slog.String("service", "requestlog")),
	}
}

// Append records one exchange. Logging failures are reported to the caller's
// log only; a lost log row must never fail the exchange it describes.
func (s *Service) Append(ctx context.Context, e Entry) {
	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Warn("request log append failed",
			slog.String("channel", e.Channel),
			slog.String("error", err.Error()))
	}
}

// List returns the most recent entries, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = DefaultListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// Contacts returns the distinct conversation partners seen in the log.
func (s *Service) Contacts(ctx context.Context) ([]Contact, error) {
	return s.repo.Contacts(ctx)
}

// Sessions reconstructs one user's sessions by splitting their exchanges at
// gaps longer than SessionGap.
func (s *Service) Sessions(ctx context.Context, userID string) ([]Session, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var sessions []Session
	current := Session{
		UserID:    userID,
		StartedAt: entries[0].CreatedAt,
		EndedAt:   entries[0].CreatedAt,
		Entries:   []Entry{entries[0]},
	}
	for _, e := range entries[1:] {
		if e.CreatedAt.Sub(current.EndedAt) > SessionGap {
			sessions = append(sessions, current)
			current = Session{UserID: userID, StartedAt: e.CreatedAt}
		}
		current.Entries = append(current.Entries, e)
		current.EndedAt = e.CreatedAt
	}
	sessions = append(sessions, current)
	return sessions, nil
}

// Stats returns the dashboard summary.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

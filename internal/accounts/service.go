// Package accounts manages console profiles: who may sign in and what role
// they hold. Identities live in the external auth service; this package owns
// the profile rows joined to them.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{
		repo:   repo,
		logger: log.With(slog.String("service", "accounts")),
	}
}

// List returns all profiles ordered by email.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// Get returns one profile.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// Role resolves the role of a user ID. Unknown users read as viewer so a
// fresh identity can see the console but change nothing.
func (s *Service) Role(ctx context.Context, userID string) Role {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return RoleViewer
	}
	return p.Role
}

// Create adds a profile in invited state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Profile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return Profile{}, fmt.Errorf("email is required")
	}
	if !ValidRole(req.Role) {
		return Profile{}, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return Profile{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	created, err := s.repo.Insert(ctx, Profile{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Role:      req.Role,
		Status:    StatusInvited,
	})
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("profile created", slog.String("id", created.ID), slog.String("role", string(created.Role)))
	return created, nil
}

// Update merges req into the stored profile.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Profile, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if req.FirstName != nil {
		current.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		current.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		if !ValidRole(*req.Role) {
			return Profile{}, fmt.Errorf("%w: %q", ErrInvalidRole, *req.Role)
		}
		current.Role = *req.Role
	}
	if req.Status != nil {
		if !ValidStatus(*req.Status) {
			return Profile{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		current.Status = *req.Status
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Profile{}, err
	}
	return current, nil
}

// Delete removes a profile.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("profile deleted", slog.String("id", id))
	return nil
}

// TouchLastActive records activity. Failures are logged only.
func (s *Service) TouchLastActive(ctx context.Context, id string) {
	if err := s.repo.TouchLastActive(ctx, id, time.Now()); err != nil {
		s.logger.Warn("touch last active failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

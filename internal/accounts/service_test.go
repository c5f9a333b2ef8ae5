package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type memoryRepo struct {
	profiles map[string]Profile
	nextID   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{profiles: map[string]Profile{}}
}

func (m *memoryRepo) List(ctx context.Context) ([]Profile, error) {
	var out []Profile
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (Profile, error) {
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (m *memoryRepo) Insert(ctx context.Context, p Profile) (Profile, error) {
	m.nextID++
	p.ID = fmt.Sprintf("user-%d", m.nextID)
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memoryRepo) Update(ctx context.Context, p Profile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *memoryRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.LastActiveAt = &at
	m.profiles[id] = p
	return nil
}

func TestCreateNormalizesAndInvites(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo)

	p, err := svc.Create(context.Background(), CreateRequest{
		FirstName: "  Ada ",
		Email:     "Ada@Example.COM",
		Role:      RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", p.Email)
	}
	if p.FirstName != "Ada" {
		t.Errorf("name not trimmed: %q", p.FirstName)
	}
	if p.Status != StatusInvited {
		t.Errorf("status = %q, want invited", p.Status)
	}
}

func TestCreateRejectsDuplicateEmailAndBadRole(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRequest{FirstName: "A", Email: "a@x.com", Role: RoleUser}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{FirstName: "B", Email: "A@X.com", Role: RoleUser}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("want ErrEmailTaken, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{FirstName: "C", Email: "c@x.com", Role: "owner"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("want ErrInvalidRole, got %v", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo)
	ctx := context.Background()

	p, _ := svc.Create(ctx, CreateRequest{FirstName: "Ada", Email: "a@x.com", Role: RoleUser})

	role := RoleAdmin
	status := StatusActive
	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Role: &role, Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Role != RoleAdmin || updated.Status != StatusActive {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.FirstName != "Ada" {
		t.Errorf("untouched field changed: %+v", updated)
	}

	bad := Status("frozen")
	if _, err := svc.Update(ctx, p.ID, UpdateRequest{Status: &bad}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("want ErrInvalidStatus, got %v", err)
	}
}

func TestRoleDefaultsToViewer(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo)
	ctx := context.Background()

	if got := svc.Role(ctx, "unknown-user"); got != RoleViewer {
		t.Errorf("unknown user role = %q, want viewer", got)
	}

	p, _ := svc.Create(ctx, CreateRequest{FirstName: "Ada", Email: "a@x.com", Role: RoleAdmin})
	if got := svc.Role(ctx, p.ID); got != RoleAdmin {
		t.Errorf("role = %q, want admin", got)
	}
}

func TestDeleteAndTouch(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo)
	ctx := context.Background()

	p, _ := svc.Create(ctx, CreateRequest{FirstName: "Ada", Email: "a@x.com", Role: RoleUser})

	svc.TouchLastActive(ctx, p.ID)
	if repo.profiles[p.ID].LastActiveAt == nil {
		t.Error("last active not recorded")
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

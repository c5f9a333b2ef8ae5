package requestlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"
)

type memoryRepo struct {
	entries   []Entry
	insertErr error
}

func (m *memoryRepo) Insert(ctx context.Context, e Entry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.ID = fmt.Sprintf("log-%d", len(m.entries)+1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryRepo) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	out := append([]Entry(nil), m.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepo) Contacts(ctx context.Context) ([]Contact, error) {
	byUser := map[string]*Contact{}
	for _, e := range m.entries {
		if e.UserID == "" {
			continue
		}
		c, ok := byUser[e.UserID]
		if !ok {
			c = &Contact{UserID: e.UserID, Channel: e.Channel}
			byUser[e.UserID] = c
		}
		c.MessageCount++
		if e.CreatedAt.After(c.LastSeenAt) {
			c.LastSeenAt = e.CreatedAt
		}
	}
	var out []Contact
	for _, c := range byUser {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memoryRepo) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByChannel: map[string]int64{}}
	for _, e := range m.entries {
		stats.Total++
		if e.Success {
			stats.Succeeded++
		}
		stats.ByChannel[e.Channel]++
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	return stats, nil
}

func at(minute int) time.Time {
	return time.Date(2026, 3, 1, 10, minute, 0, 0, time.UTC)
}

func TestAppendSwallowsRepositoryError(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{insertErr: errors.New("store down")}
	svc := NewService(slog.Default(), repo)

	// Must not panic or propagate.
	svc.Append(context.Background(), Entry{Channel: ChannelConsole, Query: "q"})
}

func TestListCapsLimit(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	for i := 0; i < 5; i++ {
		_ = repo.Insert(context.Background(), Entry{Channel: ChannelConsole, CreatedAt: at(i)})
	}
	svc := NewService(slog.Default(), repo)

	got, err := svc.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Errorf("not newest first: %v", got)
	}
}

func TestSessionsSplitAtGaps(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	ctx := context.Background()
	// Two bursts separated by more than the session gap.
	for _, minute := range []int{0, 5, 10} {
		_ = repo.Insert(ctx, Entry{UserID: "628111", Channel: ChannelWhatsApp, CreatedAt: at(minute)})
	}
	_ = repo.Insert(ctx, Entry{UserID: "628111", Channel: ChannelWhatsApp, CreatedAt: at(50)})
	_ = repo.Insert(ctx, Entry{UserID: "628111", Channel: ChannelWhatsApp, CreatedAt: at(55)})
	_ = repo.Insert(ctx, Entry{UserID: "628999", Channel: ChannelWhatsApp, CreatedAt: at(1)})

	svc := NewService(slog.Default(), repo)
	sessions, err := svc.Sessions(ctx, "628111")
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if len(sessions[0].Entries) != 3 || len(sessions[1].Entries) != 2 {
		t.Errorf("session sizes: %d, %d", len(sessions[0].Entries), len(sessions[1].Entries))
	}
	if !sessions[0].StartedAt.Equal(at(0)) || !sessions[0].EndedAt.Equal(at(10)) {
		t.Errorf("first session bounds: %v - %v", sessions[0].StartedAt, sessions[0].EndedAt)
	}
}

func TestSessionsEmptyUser(t *testing.T) {
	t.Parallel()

	svc := NewService(slog.Default(), &memoryRepo{})
	sessions, err := svc.Sessions(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if sessions != nil {
		t.Errorf("want nil, got %v", sessions)
	}
}

func TestStatsSummary(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	ctx := context.Background()
	_ = repo.Insert(ctx, Entry{Channel: ChannelConsole, Success: true})
	_ = repo.Insert(ctx, Entry{Channel: ChannelWhatsApp, Success: true})
	_ = repo.Insert(ctx, Entry{Channel: ChannelWhatsApp, Success: false})
	_ = repo.Insert(ctx, Entry{Channel: ChannelBroadcast, Success: true})

	svc := NewService(slog.Default(), repo)
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.Total != 4 || stats.Succeeded != 3 {
		t.Errorf("totals: %+v", stats)
	}
	if stats.SuccessRate != 0.75 {
		t.Errorf("success rate = %v", stats.SuccessRate)
	}
	if stats.ByChannel[ChannelWhatsApp] != 2 {
		t.Errorf("channel counts: %v", stats.ByChannel)
	}
}

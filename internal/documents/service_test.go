package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ecologiciel/gemini-rag-master/internal/genai"
)

type memoryRepo struct {
	docs       map[string]Document
	insertErr  error
	nextID     int
	statusLog  []string
	deletedIDs []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{docs: map[string]Document{}}
}

func (m *memoryRepo) Insert(ctx context.Context, doc Document) (Document, error) {
	if m.insertErr != nil {
		return Document{}, m.insertErr
	}
	m.nextID++
	doc.ID = fmt.Sprintf("doc-%d", m.nextID)
	doc.CreatedAt = time.Now()
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *memoryRepo) GetByHash(ctx context.Context, hash string) (Document, error) {
	for _, doc := range m.docs {
		if doc.ContentHash == hash {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *memoryRepo) ListByStatus(ctx context.Context, status Status) ([]Document, error) {
	var docs []Document
	for _, doc := range m.docs {
		if doc.Status == status {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	m.docs[id] = doc
	m.statusLog = append(m.statusLog, id+":"+string(status))
	return nil
}

func (m *memoryRepo) IncrementUsage(ctx context.Context, id string) error {
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.UsageCount++
	m.docs[id] = doc
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type fakeStore struct {
	uploads   int
	uploadErr error
	states    []string
	stateIdx  int
	getErr    error
	deleted   []string
	deleteErr error
}

func (f *fakeStore) UploadFile(ctx context.Context, displayName, mimeType string, data io.Reader) (genai.File, error) {
	if f.uploadErr != nil {
		return genai.File{}, f.uploadErr
	}
	f.uploads++
	state := genai.FileStateProcessing
	if len(f.states) == 0 {
		state = genai.FileStateActive
	}
	return genai.File{
		Name:     "files/fake1",
		URI:      "https://provider/files/fake1",
		MIMEType: mimeType,
		State:    state,
	}, nil
}

func (f *fakeStore) GetFile(ctx context.Context, name string) (genai.File, error) {
	if f.getErr != nil {
		return genai.File{}, f.getErr
	}
	state := genai.FileStateActive
	if f.stateIdx < len(f.states) {
		state = f.states[f.stateIdx]
		f.stateIdx++
	}
	return genai.File{Name: name, URI: "https://provider/" + name, State: state}, nil
}

func (f *fakeStore) DeleteFile(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func testService(repo Repository, store FileStore) *Service {
	return NewService(slog.Default(), repo, store, PollConfig{Attempts: 3, Interval: time.Millisecond})
}

func TestIngestStoresNewDocument(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	store := &fakeStore{}
	svc := testService(repo, store)

	content := "company handbook"
	doc, err := svc.Ingest(context.Background(), IngestInput{
		Name:   "handbook.pdf",
		Mime:   "application/pdf",
		Reader: strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	wantHash := sha256.Sum256([]byte(content))
	if doc.ContentHash != hex.EncodeToString(wantHash[:]) {
		t.Errorf("wrong hash: %q", doc.ContentHash)
	}
	if doc.Status != StatusSuccess {
		t.Errorf("status = %q, want success", doc.Status)
	}
	if doc.ProviderURI == "" || doc.ProviderName == "" {
		t.Errorf("provider reference missing: %+v", doc)
	}
	if doc.SizeBytes != int64(len(content)) {
		t.Errorf("size = %d, want %d", doc.SizeBytes, len(content))
	}
}

func TestIngestDuplicateReturnsExisting(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	store := &fakeStore{}
	svc := testService(repo, store)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, IngestInput{Name: "a.txt", Mime: "text/plain", Reader: strings.NewReader("same bytes")})
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}

	// Same content under a different name must hit the dedup path.
	second, err := svc.Ingest(ctx, IngestInput{Name: "b.txt", Mime: "text/plain", Reader: strings.NewReader("same bytes")})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate returned a different record: %q vs %q", second.ID, first.ID)
	}
	if second.Status != StatusDuplicate {
		t.Errorf("conflict view status = %q, want %q", second.Status, StatusDuplicate)
	}
	if store.uploads != 1 {
		t.Errorf("duplicate triggered a provider upload: %d", store.uploads)
	}
}

func TestIngestRejectsOversized(t *testing.T) {
	t.Parallel()

	svc := testService(newMemoryRepo(), &fakeStore{})

	_, err := svc.Ingest(context.Background(), IngestInput{
		Name:     "big.bin",
		Reader:   strings.NewReader(strings.Repeat("x", 100)),
		MaxBytes: 10,
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestIngestRejectsEmpty(t *testing.T) {
	t.Parallel()

	svc := testService(newMemoryRepo(), &fakeStore{})

	_, err := svc.Ingest(context.Background(), IngestInput{Name: "empty.txt", Reader: strings.NewReader("")})
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("want ErrEmpty, got %v", err)
	}
}

func TestIngestWaitsForActivation(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	store := &fakeStore{states: []string{genai.FileStateProcessing, genai.FileStateProcessing, genai.FileStateActive}}
	svc := testService(repo, store)

	doc, err := svc.Ingest(context.Background(), IngestInput{Name: "slow.pdf", Reader: strings.NewReader("bytes")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Status != StatusSuccess {
		t.Errorf("status = %q", doc.Status)
	}
}

func TestIngestFailedFileRollsBack(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	store := &fakeStore{states: []string{genai.FileStateFailed}}
	svc := testService(repo, store)

	_, err := svc.Ingest(context.Background(), IngestInput{Name: "bad.pdf", Reader: strings.NewReader("bytes")})
	if !errors.Is(err, genai.ErrFileFailed) {
		t.Fatalf("want ErrFileFailed, got %v", err)
	}
	if len(store.deleted) != 1 {
		t.Errorf("provider file not rolled back: %v", store.deleted)
	}
	if len(repo.docs) != 0 {
		t.Errorf("row written despite failure: %v", repo.docs)
	}
}

func TestIngestRowFailureDeletesProviderFile(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.insertErr = errors.New("connection reset")
	store := &fakeStore{}
	svc := testService(repo, store)

	_, err := svc.Ingest(context.Background(), IngestInput{Name: "doc.pdf", Reader: strings.NewReader("bytes")})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("want insert error surfaced, got %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "files/fake1" {
		t.Errorf("compensating delete missing: %v", store.deleted)
	}
}

func TestDeleteRemovesRowEvenIfProviderFails(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	store := &fakeStore{}
	svc := testService(repo, store)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, IngestInput{Name: "doc.pdf", Reader: strings.NewReader("bytes")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	store.deleteErr = errors.New("provider down")
	if err := svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("row survived delete: %v", err)
	}
}

func TestListActiveFiltersByStateAndURI(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.docs["a"] = Document{ID: "a", Status: StatusSuccess, ProviderURI: "https://provider/a"}
	repo.docs["b"] = Document{ID: "b", Status: StatusError, ProviderURI: "https://provider/b"}
	repo.docs["c"] = Document{ID: "c", Status: StatusSuccess, ProviderURI: ""}
	svc := testService(repo, &fakeStore{})

	active, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != "a" {
		t.Errorf("unexpected active set: %+v", active)
	}
}

func TestMarkUsedBumpsCounter(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.docs["a"] = Document{ID: "a", Status: StatusSuccess}
	svc := testService(repo, &fakeStore{})

	svc.MarkUsed(context.Background(), []string{"a", "missing"})

	if repo.docs["a"].UsageCount != 1 {
		t.Errorf("usage count = %d", repo.docs["a"].UsageCount)
	}
}

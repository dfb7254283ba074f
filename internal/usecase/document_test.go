package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
)

type memoryFileStore struct {
	contents map[string]string
	putErr   error
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{contents: make(map[string]string)}
}

func (s *memoryFileStore) Put(_ context.Context, fileID string, content io.Reader, _ int64) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	s.contents[fileID] = string(data)
	return nil
}

func (s *memoryFileStore) Get(_ context.Context, fileID string) (io.ReadCloser, error) {
	data, ok := s.contents[fileID]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (s *memoryFileStore) Delete(_ context.Context, fileID string) error {
	delete(s.contents, fileID)
	return nil
}

type documentFixture struct {
	svc       *DocumentService
	users     *userRepoFake
	documents *documentRepoFake
	files     *fileRepoFake
	store     *memoryFileStore
	outbox    *outboxRepoFake
}

func newDocumentFixture(t *testing.T, users *userRepoFake) *documentFixture {
	t.Helper()
	f := &documentFixture{
		users:     users,
		documents: newDocumentRepoFake(),
		files:     newFileRepoFake(),
		store:     newMemoryFileStore(),
		outbox:    &outboxRepoFake{},
	}
	atomic := &atomicFake{repos: port.AtomicRepos{
		Users:     f.users,
		Documents: f.documents,
		Files:     f.files,
		Outbox:    f.outbox,
	}}
	f.svc = NewDocumentService(f.documents, f.files, f.store, atomic, nil)
	return f
}

func TestDocumentServiceCreateAndGet(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice"})
	f := newDocumentFixture(t, users)
	alice, _ := users.GetByID(context.Background(), "user-1")

	document, err := f.svc.Create(context.Background(), alice, CreateDocumentInput{Title: "notes"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if document.Language != "eng" {
		t.Fatalf("expected default language, got %s", document.Language)
	}

	loaded, err := f.svc.Get(context.Background(), alice, document.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if loaded.Title != "notes" {
		t.Fatalf("expected title notes, got %s", loaded.Title)
	}

	// Another user cannot see it.
	bob := &domain.User{ID: "user-2", Username: "bob"}
	if _, err := f.svc.Get(context.Background(), bob, document.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for a stranger, got %v", err)
	}

	if _, err := f.svc.Create(context.Background(), alice, CreateDocumentInput{}); err == nil {
		t.Fatalf("expected empty title to be rejected")
	}
}

func TestDocumentServiceUploadAndReadFile(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice", StorageQuota: 1000})
	f := newDocumentFixture(t, users)
	alice, _ := users.GetByID(context.Background(), "user-1")

	file, err := f.svc.UploadFile(context.Background(), alice, UploadFileInput{
		Name:     "report.pdf",
		MimeType: "application/pdf",
		Size:     11,
		Content:  strings.NewReader("pdf content"),
	})
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if f.store.contents[file.ID] != "pdf content" {
		t.Fatalf("expected the content in the store")
	}
	if alice.StorageCurrent != 11 {
		t.Fatalf("expected usage tracking, got %d", alice.StorageCurrent)
	}

	loaded, rc, err := f.svc.ReadFile(context.Background(), alice, file.ID)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "pdf content" || loaded.Name != "report.pdf" {
		t.Fatalf("unexpected file read: %s %s", loaded.Name, data)
	}

	bob := &domain.User{ID: "user-2"}
	if _, _, err := f.svc.ReadFile(context.Background(), bob, file.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound for a stranger, got %v", err)
	}
}

func TestDocumentServiceUploadQuota(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice", StorageQuota: 10, StorageCurrent: 5})
	f := newDocumentFixture(t, users)
	alice, _ := users.GetByID(context.Background(), "user-1")

	_, err := f.svc.UploadFile(context.Background(), alice, UploadFileInput{
		Name:    "big.bin",
		Size:    6,
		Content: strings.NewReader("123456"),
	})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if len(f.store.contents) != 0 {
		t.Fatalf("expected no content stored")
	}
}

func TestDocumentServiceUploadFailureLeavesUsageUntouched(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice", StorageQuota: 1000})
	f := newDocumentFixture(t, users)
	alice, _ := users.GetByID(context.Background(), "user-1")

	f.files.createErr = errors.New("unique violation")
	_, err := f.svc.UploadFile(context.Background(), alice, UploadFileInput{
		Name:    "report.pdf",
		Size:    11,
		Content: strings.NewReader("pdf content"),
	})
	if err == nil {
		t.Fatalf("expected upload to fail")
	}

	stored, _ := users.GetByID(context.Background(), "user-1")
	if stored.StorageCurrent != 0 {
		t.Fatalf("expected usage to stay at 0, got %d", stored.StorageCurrent)
	}
	if len(f.store.contents) != 0 {
		t.Fatalf("expected orphaned content to be reclaimed")
	}
}

func TestDocumentServiceDeleteCascades(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice", StorageQuota: 1000})
	f := newDocumentFixture(t, users)
	alice, _ := users.GetByID(context.Background(), "user-1")

	document, err := f.svc.Create(context.Background(), alice, CreateDocumentInput{Title: "notes"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	file, err := f.svc.UploadFile(context.Background(), alice, UploadFileInput{
		DocumentID: document.ID,
		Name:       "attachment.txt",
		Size:       5,
		Content:    strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}

	if err := f.svc.Delete(context.Background(), alice, document.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if f.documents.documents[document.ID].DeleteDate == nil {
		t.Fatalf("expected document tombstone")
	}
	if f.files.files[file.ID].DeleteDate == nil {
		t.Fatalf("expected file tombstone")
	}

	types := f.outbox.pendingTypes()
	if len(types) != 2 || types[0] != domain.EventTypeDocumentDeleted || types[1] != domain.EventTypeFileDeleted {
		t.Fatalf("expected document and file deletion events, got %v", types)
	}

	// Content cleanup is the consumer's job, not the request path's.
	if _, ok := f.store.contents[file.ID]; !ok {
		t.Fatalf("expected content to remain until the cleanup consumer runs")
	}

	if alice.StorageCurrent != 0 {
		t.Fatalf("expected usage reclaimed after delete, got %d", alice.StorageCurrent)
	}

	if _, err := f.svc.Get(context.Background(), alice, document.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected the document to be gone, got %v", err)
	}
}

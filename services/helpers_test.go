package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aicert/cert_platform/database"
	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/storage"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite://file::memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func newTestStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func storedFiles(t *testing.T, store *storage.LocalStore) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type fakeCompleter struct {
	mu       sync.Mutex
	disabled bool
	response string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Enabled() bool { return !f.disabled }

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeExtractor struct {
	text  string
	err   error
	paths []string
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (string, error) {
	f.paths = append(f.paths, path)
	return f.text, f.err
}

type staticParser []ParsedQuestion

func (p staticParser) Parse(context.Context, string) []ParsedQuestion { return p }

type recordingReporter struct {
	mu     sync.Mutex
	stages []string
}

func (r *recordingReporter) Report(_ uint, ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, ev.Stage)
}

func createQuestion(t *testing.T, db *gorm.DB, docID *uint, text string, options ...models.Option) models.Question {
	t.Helper()
	q := models.Question{QuestionText: text, QuestionType: models.QuestionTypeMultipleChoice, RawDocumentID: docID, Options: options}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func fourOptions(correct int) []models.Option {
	opts := make([]models.Option, 4)
	for i := range opts {
		opts[i] = models.Option{OptionText: string(rune('A' + i)), IsCorrect: i == correct}
	}
	return opts
}

package database

import (
	"testing"
	"time"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/models"
	"golang.org/x/crypto/bcrypt"
)

func TestMigrateAndSeed(t *testing.T) {
	db, err := Open("sqlite://file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	settings := config.Settings{AdminPassword: "s3cret", TestAccountsEnabled: true}
	if err := SeedAccounts(db, settings); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// second run must be a no-op
	if err := SeedAccounts(db, settings); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	var users []models.User
	if err := db.Order("id").Find(&users).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 seeded users, got %d", len(users))
	}
	admin := users[0]
	if admin.Username != "admin" || !admin.IsAdmin {
		t.Errorf("unexpected admin row %+v", admin)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret")); err != nil {
		t.Errorf("admin password not hashed from settings: %v", err)
	}
	if users[1].Username != "testuser" || users[1].IsAdmin {
		t.Errorf("unexpected test user row %+v", users[1])
	}
}

func TestSeedWithoutTestAccounts(t *testing.T) {
	db, err := Open("file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := SeedAccounts(db, config.Settings{AdminPassword: "1234"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("expected only the admin, got %d users", count)
	}
}

func TestDeletingDocumentCascadesToQuestionsAndOptions(t *testing.T) {
	db, err := Open("sqlite://file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := models.User{Username: "admin", Email: "admin@example.com", Password: "x", IsAdmin: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	doc := models.RawDocument{Filename: "exam.pdf", FilePath: "exam.pdf", UploadedByID: user.ID, UploadedAt: time.Now()}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}
	q := models.Question{
		QuestionText:  "q",
		QuestionType:  models.QuestionTypeMultipleChoice,
		RawDocumentID: &doc.ID,
		Options:       []models.Option{{OptionText: "a", IsCorrect: true}, {OptionText: "b"}},
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}

	if err := db.Create(&models.Option{QuestionID: q.ID + 100, OptionText: "orphan"}).Error; err == nil {
		t.Error("expected an option without a question to be rejected")
	}

	if err := db.Delete(&models.RawDocument{}, doc.ID).Error; err != nil {
		t.Fatalf("delete document: %v", err)
	}

	var questions, options int64
	db.Model(&models.Question{}).Count(&questions)
	db.Model(&models.Option{}).Count(&options)
	if questions != 0 || options != 0 {
		t.Errorf("questions/options left after delete = %d/%d, want 0/0", questions, options)
	}
}

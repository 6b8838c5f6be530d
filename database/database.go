package database

import (
	"fmt"
	"log"
	"strings"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open selects the driver from the URL scheme. Anything that is not
// postgres:// or postgresql:// is treated as a SQLite path, with an optional
// sqlite:// prefix.
func Open(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	default:
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:            false,
		SkipDefaultTransaction: true,
		// ingestion persists each question inside a savepoint
		DisableNestedTransaction: false,
		Logger:                   gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// a single connection keeps in-memory databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

func ConnectDB(settings config.Settings) *gorm.DB {
	var err error
	DB, err = Open(settings.DatabaseURL)
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	fmt.Println("✅ Database connected successfully")
	return DB
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Certification{},
		&models.RawDocument{},
		&models.Question{},
		&models.Option{},
		&models.UserAnswer{},
		&models.UserProgress{},
		&models.GeneratedProblem{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedAccounts creates the default admin and, when enabled, the test student.
// Existing accounts are left untouched.
func SeedAccounts(db *gorm.DB, settings config.Settings) error {
	if err := seedUser(db, "admin", "admin@example.com", settings.AdminPassword, true); err != nil {
		return err
	}
	if settings.TestAccountsEnabled {
		if err := seedUser(db, "testuser", "test@example.com", "test123", false); err != nil {
			return err
		}
	}
	return nil
}

func seedUser(db *gorm.DB, username, email, password string, isAdmin bool) error {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for user %s: %w", username, err)
	}
	if count > 0 {
		log.Printf("User %s already exists.", username)
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password for %s: %w", username, err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		IsAdmin:  isAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to seed user %s: %w", username, err)
	}

	log.Printf("✅ User %s seeded successfully", username)
	return nil
}

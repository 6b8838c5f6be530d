package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/storage"
	"gorm.io/gorm"
)

type DocumentListItem struct {
	ID            uint      `json:"id"`
	Filename      string    `json:"filename"`
	UploadedAt    time.Time `json:"uploaded_at"`
	PageCount     int       `json:"page_count"`
	QuestionCount int64     `json:"question_count"`
}

type DocumentService struct {
	db    *gorm.DB
	store storage.FileStore
	log   logger.Logger
}

func NewDocumentService(db *gorm.DB, store storage.FileStore, log logger.Logger) *DocumentService {
	return &DocumentService{db: db, store: store, log: log.With("documents")}
}

func (s *DocumentService) List(ctx context.Context) ([]DocumentListItem, error) {
	items := []DocumentListItem{}
	err := s.db.WithContext(ctx).
		Model(&models.RawDocument{}).
		Select("raw_documents.id, raw_documents.filename, raw_documents.uploaded_at, raw_documents.page_count, COUNT(questions.id) AS question_count").
		Joins("LEFT JOIN questions ON questions.raw_document_id = raw_documents.id").
		Group("raw_documents.id, raw_documents.filename, raw_documents.uploaded_at, raw_documents.page_count").
		Order("raw_documents.uploaded_at DESC, raw_documents.id DESC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *DocumentService) Get(ctx context.Context, id uint) (DocumentListItem, error) {
	var doc models.RawDocument
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return DocumentListItem{}, notFound(err, "document %d", id)
	}
	item := DocumentListItem{ID: doc.ID, Filename: doc.Filename, UploadedAt: doc.UploadedAt, PageCount: doc.PageCount}
	if err := s.db.WithContext(ctx).Model(&models.Question{}).Where("raw_document_id = ?", id).Count(&item.QuestionCount).Error; err != nil {
		return DocumentListItem{}, err
	}
	return item, nil
}

func (s *DocumentService) Questions(ctx context.Context, id uint) ([]models.Question, error) {
	var doc models.RawDocument
	if err := s.db.WithContext(ctx).Select("id").First(&doc, id).Error; err != nil {
		return nil, notFound(err, "document %d", id)
	}
	questions := []models.Question{}
	err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("options.id") }).
		Where("raw_document_id = ?", id).
		Order("id").
		Find(&questions).Error
	return questions, err
}

// ListQuestions pages through the whole question bank.
func (s *DocumentService) ListQuestions(ctx context.Context, skip, limit int) ([]models.Question, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	questions := []models.Question{}
	err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("options.id") }).
		Order("id").Offset(skip).Limit(limit).
		Find(&questions).Error
	return questions, err
}

// Delete removes the document, its questions and everything that hangs off
// them in one transaction, then the stored file.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	var doc models.RawDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, id).Error; err != nil {
			return notFound(err, "document %d", id)
		}
		var questionIDs []uint
		if err := tx.Model(&models.Question{}).Where("raw_document_id = ?", id).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if err := deleteQuestions(tx, questionIDs); err != nil {
			return err
		}
		return tx.Delete(&models.RawDocument{}, id).Error
	})
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		s.log.Warn("Document %d deleted but its file could not be removed: %v", id, err)
	}
	s.log.Info("Deleted document %d (%s)", id, doc.Filename)
	return nil
}

func (s *DocumentService) DeleteQuestion(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Select("id").First(&q, id).Error; err != nil {
			return notFound(err, "question %d", id)
		}
		return deleteQuestions(tx, []uint{id})
	})
}

func deleteQuestions(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	for _, model := range []any{&models.UserAnswer{}, &models.UserProgress{}, &models.Option{}} {
		if err := tx.Where("question_id IN ?", ids).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", ids).Delete(&models.Question{}).Error
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}

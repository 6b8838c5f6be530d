package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/storage"
	"gorm.io/gorm"
)

const (
	StageUploaded      = "uploaded"
	StageExtracting    = "extracting"
	StageExtracted     = "extracted"
	StageExtractFailed = "extract_failed"
	StageParsing       = "parsing"
	StageParsedEmpty   = "parsed_empty"
	StagePersisting    = "persisting"
	StageDone          = "done"
	StageFailed        = "failed"
)

const textPreviewRunes = 500

type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type QuestionSource interface {
	Parse(ctx context.Context, text string) []ParsedQuestion
}

type ProgressEvent struct {
	DocumentID uint      `json:"document_id"`
	Filename   string    `json:"filename"`
	Stage      string    `json:"stage"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

type ProgressReporter interface {
	Report(userID uint, event ProgressEvent)
}

type noopReporter struct{}

func (noopReporter) Report(uint, ProgressEvent) {}

// Upload is one file handed to the pipeline. Size may be -1 when unknown.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type QuestionOutcome struct {
	Index      int
	QuestionID uint
	Err        error
}

type QuestionFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type IngestionSummary struct {
	DocumentID           uint              `json:"document_id"`
	Filename             string            `json:"filename"`
	QuestionsParsed      int               `json:"questions_parsed"`
	QuestionsSaved       int               `json:"questions_saved"`
	Message              string            `json:"message"`
	ExtractedTextPreview string            `json:"extracted_text_preview"`
	Failures             []QuestionFailure `json:"failures"`
}

type IngestionService struct {
	db             *gorm.DB
	store          storage.FileStore
	extractor      TextExtractor
	parser         QuestionSource
	reporter       ProgressReporter
	pageCount      func(path string) int
	maxUploadBytes int64
	log            logger.Logger
}

type IngestionConfig struct {
	MaxUploadBytes int64
	// PageCount reads document metadata; nil leaves the count at zero.
	PageCount func(path string) int
}

func NewIngestionService(db *gorm.DB, store storage.FileStore, extractor TextExtractor, parser QuestionSource, cfg IngestionConfig, log logger.Logger) *IngestionService {
	pageCount := cfg.PageCount
	if pageCount == nil {
		pageCount = func(string) int { return 0 }
	}
	return &IngestionService{
		db:             db,
		store:          store,
		extractor:      extractor,
		parser:         parser,
		reporter:       noopReporter{},
		pageCount:      pageCount,
		maxUploadBytes: cfg.MaxUploadBytes,
		log:            log.With("ingest"),
	}
}

func (s *IngestionService) SetReporter(r ProgressReporter) {
	if r == nil {
		r = noopReporter{}
	}
	s.reporter = r
}

// Ingest runs one upload through storage, extraction, parsing and persistence.
// Only rejected input, storage failures, empty extraction and a failed commit
// are returned as errors; per-question problems are reported in the summary.
func (s *IngestionService) Ingest(ctx context.Context, up Upload, uploaderID uint) (IngestionSummary, error) {
	doc, err := s.Store(ctx, up, uploaderID)
	if err != nil {
		return IngestionSummary{}, err
	}

	text, err := s.extract(ctx, &doc, uploaderID)
	if err != nil {
		return IngestionSummary{}, err
	}

	summary := IngestionSummary{
		DocumentID:           doc.ID,
		Filename:             doc.Filename,
		ExtractedTextPreview: preview(text),
		Failures:             []QuestionFailure{},
	}

	s.report(uploaderID, doc, StageParsing, "")
	parsed := s.parser.Parse(ctx, text)
	if len(parsed) == 0 {
		s.report(uploaderID, doc, StageParsedEmpty, "")
		summary.Message = "OCR succeeded but no questions could be parsed."
		return summary, nil
	}

	s.report(uploaderID, doc, StagePersisting, fmt.Sprintf("%d questions", len(parsed)))
	outcomes, err := s.persist(ctx, doc.ID, parsed)
	if err != nil {
		s.report(uploaderID, doc, StageFailed, err.Error())
		return IngestionSummary{}, fmt.Errorf("failed to save questions: %w", err)
	}

	summary.QuestionsParsed = len(parsed)
	for _, o := range outcomes {
		if o.Err != nil {
			summary.Failures = append(summary.Failures, QuestionFailure{Index: o.Index, Reason: o.Err.Error()})
			continue
		}
		summary.QuestionsSaved++
	}
	summary.Message = "PDF upload and OCR processing completed."
	s.report(uploaderID, doc, StageDone, fmt.Sprintf("%d of %d questions saved", summary.QuestionsSaved, summary.QuestionsParsed))
	return summary, nil
}

// Store validates and saves the upload and records an empty RawDocument.
func (s *IngestionService) Store(ctx context.Context, up Upload, uploaderID uint) (models.RawDocument, error) {
	name := filepath.Base(up.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return models.RawDocument{}, fmt.Errorf("%w: only PDF files can be uploaded", ErrInputRejected)
	}
	if s.maxUploadBytes > 0 && up.Size > s.maxUploadBytes {
		return models.RawDocument{}, fmt.Errorf("%w: file exceeds the %d byte limit", ErrInputRejected, s.maxUploadBytes)
	}

	content := up.Content
	if s.maxUploadBytes > 0 {
		content = &limitReader{r: up.Content, remaining: s.maxUploadBytes}
	}
	obj, err := s.store.Save(ctx, storage.UniqueKey(name), content)
	if err != nil {
		if errors.Is(err, ErrInputRejected) {
			return models.RawDocument{}, err
		}
		return models.RawDocument{}, fmt.Errorf("failed to store upload: %w", err)
	}

	doc := models.RawDocument{
		Filename:     name,
		FilePath:     obj.Path,
		PageCount:    s.pageCount(obj.Path),
		UploadedByID: uploaderID,
		UploadedAt:   time.Now(),
	}
	if obj.URL != "" {
		doc.FileURL = &obj.URL
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		s.removeFile(ctx, obj.Path)
		return models.RawDocument{}, fmt.Errorf("failed to record document: %w", err)
	}

	s.log.Info("Stored %s as document %d (%d pages)", name, doc.ID, doc.PageCount)
	s.report(uploaderID, doc, StageUploaded, "")
	return doc, nil
}

// ExtractStored re-runs extraction for a document that is already stored.
func (s *IngestionService) ExtractStored(ctx context.Context, documentID, userID uint) (models.RawDocument, error) {
	var doc models.RawDocument
	if err := s.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return doc, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
		}
		return doc, err
	}

	s.report(userID, doc, StageExtracting, "")
	text, err := s.extractor.Extract(ctx, doc.FilePath)
	if err != nil {
		return doc, err
	}
	if strings.TrimSpace(text) == "" {
		s.report(userID, doc, StageExtractFailed, "")
		return doc, ErrExtractionEmpty
	}
	if err := s.db.WithContext(ctx).Model(&doc).Update("extracted_text", text).Error; err != nil {
		return doc, fmt.Errorf("failed to save extracted text: %w", err)
	}
	s.report(userID, doc, StageExtracted, "")
	return doc, nil
}

func (s *IngestionService) extract(ctx context.Context, doc *models.RawDocument, uploaderID uint) (string, error) {
	s.report(uploaderID, *doc, StageExtracting, "")
	text, err := s.extractor.Extract(ctx, doc.FilePath)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrExtractionEmpty
	}
	if err != nil {
		s.log.Warn("Extraction failed for document %d: %v", doc.ID, err)
		s.report(uploaderID, *doc, StageExtractFailed, err.Error())
		s.discard(ctx, *doc)
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(doc).Update("extracted_text", text).Error; err != nil {
		s.discard(ctx, *doc)
		return "", fmt.Errorf("failed to save extracted text: %w", err)
	}
	doc.ExtractedText = text
	s.report(uploaderID, *doc, StageExtracted, fmt.Sprintf("%d characters", len([]rune(text))))
	return text, nil
}

// persist saves every question in its own savepoint inside one transaction.
func (s *IngestionService) persist(ctx context.Context, documentID uint, parsed []ParsedQuestion) ([]QuestionOutcome, error) {
	outcomes := make([]QuestionOutcome, 0, len(parsed))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, pq := range parsed {
			outcome := QuestionOutcome{Index: i}
			outcome.Err = tx.Transaction(func(sp *gorm.DB) error {
				q, err := mapQuestion(pq, documentID)
				if err != nil {
					return err
				}
				if err := sp.Create(&q).Error; err != nil {
					return err
				}
				outcome.QuestionID = q.ID
				return nil
			})
			if outcome.Err != nil {
				s.log.Warn("Error saving question %d: %v", i+1, outcome.Err)
			} else if pq.CorrectCount() == 0 {
				s.log.Warn("Question %d saved without a correct option", i+1)
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func mapQuestion(pq ParsedQuestion, documentID uint) (models.Question, error) {
	text := strings.TrimSpace(pq.Text)
	if text == "" {
		return models.Question{}, errors.New("question text is empty")
	}
	q := models.Question{
		QuestionText:  text,
		QuestionType:  models.QuestionTypeMultipleChoice,
		RawDocumentID: &documentID,
	}
	for _, o := range pq.Options {
		q.Options = append(q.Options, models.Option{OptionText: o.Text, IsCorrect: o.IsCorrect})
	}
	return q, nil
}

// discard removes a document whose extraction produced nothing.
func (s *IngestionService) discard(ctx context.Context, doc models.RawDocument) {
	s.removeFile(ctx, doc.FilePath)
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Delete(&models.RawDocument{}, doc.ID).Error; err != nil {
		s.log.Error("Failed to delete empty document %d: %v", doc.ID, err)
	}
}

func (s *IngestionService) removeFile(ctx context.Context, path string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.log.Error("Failed to remove stored file %s: %v", path, err)
	}
}

func (s *IngestionService) report(userID uint, doc models.RawDocument, stage, detail string) {
	s.reporter.Report(userID, ProgressEvent{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Stage:      stage,
		Detail:     detail,
		At:         time.Now(),
	})
}

func preview(text string) string {
	return truncateRunes(text, textPreviewRunes) + "..."
}

// limitReader fails once more than remaining bytes have been read.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, fmt.Errorf("%w: file exceeds the upload size limit", ErrInputRejected)
	}
	return n, err
}

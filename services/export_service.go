package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/aicert/cert_platform/models"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"gorm.io/gorm"
)

//go:embed templates/document_export.html
var exportTemplates embed.FS

var exportTemplate = template.Must(template.New("document_export.html").Funcs(template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"answer": answerLabel,
}).ParseFS(exportTemplates, "templates/document_export.html"))

// PDFPrinter turns an HTML page into a PDF.
type PDFPrinter func(ctx context.Context, html string) ([]byte, error)

type ExportService struct {
	db      *gorm.DB
	printer PDFPrinter
}

func NewExportService(db *gorm.DB, printer PDFPrinter) *ExportService {
	if printer == nil {
		printer = PrintPDFWithChrome
	}
	return &ExportService{db: db, printer: printer}
}

// ExportPDF renders a document's questions as a printable PDF.
func (s *ExportService) ExportPDF(ctx context.Context, documentID uint, withAnswers bool) ([]byte, string, error) {
	html, doc, err := s.RenderHTML(ctx, documentID, withAnswers)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.printer(ctx, html)
	if err != nil {
		return nil, "", fmt.Errorf("failed to print PDF: %w", err)
	}
	name := strings.TrimSuffix(doc.Filename, ".pdf") + "_questions.pdf"
	return pdf, name, nil
}

func (s *ExportService) RenderHTML(ctx context.Context, documentID uint, withAnswers bool) (string, models.RawDocument, error) {
	var doc models.RawDocument
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("questions.id") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("options.id") }).
		First(&doc, documentID).Error
	if err != nil {
		return "", doc, notFound(err, "document %d", documentID)
	}

	data := struct {
		Filename    string
		ExportedAt  string
		Questions   []models.Question
		WithAnswers bool
	}{
		Filename:    doc.Filename,
		ExportedAt:  time.Now().Format("January 2, 2006"),
		Questions:   doc.Questions,
		WithAnswers: withAnswers,
	}

	var rendered bytes.Buffer
	if err := exportTemplate.Execute(&rendered, data); err != nil {
		return "", doc, err
	}
	return rendered.String(), doc, nil
}

func answerLabel(q models.Question) string {
	for i, o := range q.Options {
		if o.IsCorrect {
			return fmt.Sprintf("%d. %s", i+1, o.OptionText)
		}
	}
	return "-"
}

// PrintPDFWithChrome loads html into a headless Chrome tab and prints it.
func PrintPDFWithChrome(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

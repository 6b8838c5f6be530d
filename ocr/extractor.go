package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aicert/cert_platform/logger"
)

// Document is a rendered view of a PDF.
type Document interface {
	NumPage() int
	ImagePNG(page int, dpi float64) ([]byte, error)
	Close() error
}

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(image []byte) (string, error)
}

// Opener opens a PDF for rendering.
type Opener func(path string) (Document, error)

// TextLayer returns the embedded text of every page, in page order.
type TextLayer func(path string) ([]string, error)

type Extractor struct {
	open      Opener
	recognize func() (Recognizer, func(), error)
	textLayer TextLayer
	dpi       float64
	log       logger.Logger
}

type Option func(*Extractor)

func WithOpener(o Opener) Option { return func(e *Extractor) { e.open = o } }

func WithTextLayer(t TextLayer) Option { return func(e *Extractor) { e.textLayer = t } }

// WithRecognizer makes every extraction share r.
func WithRecognizer(r Recognizer) Option {
	return func(e *Extractor) {
		e.recognize = func() (Recognizer, func(), error) { return r, func() {}, nil }
	}
}

func WithDPI(dpi float64) Option { return func(e *Extractor) { e.dpi = dpi } }

// New builds an extractor that renders with MuPDF, recognizes with Tesseract
// and falls back to the PDF text layer.
func New(languages []string, tessdataDir string, log logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		open:      OpenFitz,
		textLayer: ReadTextLayer,
		dpi:       300,
		log:       log.With("ocr"),
		recognize: func() (Recognizer, func(), error) {
			t, err := NewTesseract(languages, tessdataDir)
			if err != nil {
				return nil, nil, err
			}
			return t, func() { t.Close() }, nil
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of every page of the PDF at path, each page headed
// by a marker line. It returns "" when nothing readable was found. A missing
// or unreadable file is not an error.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		e.log.Error("PDF file not found at %s: %v", path, err)
		return "", nil
	}
	e.log.Info("Processing PDF for OCR: %s", path)

	doc, err := e.open(path)
	if err != nil {
		e.log.Warn("Rendering %s failed, using text layer: %v", path, err)
		return e.fromTextLayer(path), nil
	}
	defer doc.Close()

	rec, release, err := e.recognize()
	if err != nil {
		e.log.Warn("OCR engine unavailable, using text layer: %v", err)
		return e.fromTextLayer(path), nil
	}
	defer release()

	var (
		pages    []string
		layer    []string
		layerErr error
		loaded   bool
		anyText  bool
	)
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := e.recognizePage(doc, rec, i)
		if err == nil {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i+1, text))
			anyText = anyText || strings.TrimSpace(text) != ""
			continue
		}

		e.log.Warn("OCR failed on page %d of %s: %v", i+1, path, err)
		if !loaded {
			layer, layerErr = e.textLayer(path)
			loaded = true
			if layerErr != nil {
				e.log.Warn("Text layer unavailable for %s: %v", path, layerErr)
			}
		}
		var fallback string
		if i < len(layer) {
			fallback = layer[i]
		}
		pages = append(pages, fallbackPage(i, fallback))
		anyText = anyText || strings.TrimSpace(fallback) != ""
	}

	if !anyText {
		return "", nil
	}
	return strings.Join(pages, "\n"), nil
}

func (e *Extractor) recognizePage(doc Document, rec Recognizer, i int) (string, error) {
	img, err := doc.ImagePNG(i, e.dpi)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	text, err := rec.Recognize(img)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

func (e *Extractor) fromTextLayer(path string) string {
	layer, err := e.textLayer(path)
	if err != nil {
		e.log.Error("Fallback text extraction failed: %v", err)
		return ""
	}

	pages := make([]string, 0, len(layer))
	anyText := false
	for i, text := range layer {
		pages = append(pages, fallbackPage(i, text))
		anyText = anyText || strings.TrimSpace(text) != ""
	}
	if !anyText {
		return ""
	}
	return strings.Join(pages, "\n")
}

func fallbackPage(i int, text string) string {
	if strings.TrimSpace(text) == "" {
		return fmt.Sprintf("--- Page %d (No Text Extracted) ---\n", i+1)
	}
	return fmt.Sprintf("--- Page %d (Text Extraction) ---\n%s", i+1, text)
}

package ocr

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ReadTextLayer reads the embedded text of each page. Pages without content
// yield "" so indexes stay aligned with page numbers.
func ReadTextLayer(path string) (pages []string, err error) {
	defer func() {
		// the reader panics on some malformed streams
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("text layer: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// PageCount reads the page count from the PDF structure. Zero on any failure.
func PageCount(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	n, err := pdfapi.PageCount(f, nil)
	if err != nil {
		return 0
	}
	return n
}

package ocr

import fitz "github.com/gen2brain/go-fitz"

// OpenFitz renders through MuPDF.
func OpenFitz(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

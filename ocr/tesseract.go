package ocr

import (
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is not safe for concurrent use.
type Tesseract struct {
	client *gosseract.Client
}

func NewTesseract(languages []string, tessdataDir string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if tessdataDir != "" {
		if err := client.SetTessdataPrefix(tessdataDir); err != nil {
			client.Close()
			return nil, err
		}
	}
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, err
		}
	}
	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Recognize(image []byte) (string, error) {
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	text, err := t.client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}

package services

import "errors"

var (
	ErrInputRejected        = errors.New("input rejected")
	ErrExtractionEmpty      = errors.New("no text could be extracted from the PDF")
	ErrNotFound             = errors.New("not found")
	ErrInferenceUnavailable = errors.New("AI service unavailable")
)

package handlers

import (
	"fmt"
	"mime/multipart"
	"net/url"
	"unicode/utf8"

	"github.com/aicert/cert_platform/middleware"
	"github.com/aicert/cert_platform/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.Documents.List(c.UserContext())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(docs)
}

func (h *Handler) GetDocument(c *fiber.Ctx) error {
	id, ok := paramID(c, "documentId")
	if !ok {
		return invalidParam(c, "documentId")
	}
	doc, err := h.Documents.Get(c.UserContext(), id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) GetDocumentQuestions(c *fiber.Ctx) error {
	id, ok := paramID(c, "documentId")
	if !ok {
		return invalidParam(c, "documentId")
	}
	questions, err := h.Documents.Questions(c.UserContext(), id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(questions)
}

// ExportDocument streams a printable PDF of the document's questions.
// ?answers=true appends the answer key.
func (h *Handler) ExportDocument(c *fiber.Ctx) error {
	id, ok := paramID(c, "documentId")
	if !ok {
		return invalidParam(c, "documentId")
	}
	pdf, name, err := h.Exporter.ExportPDF(c.UserContext(), id, c.QueryBool("answers", false))
	if err != nil {
		return h.serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	return c.Send(pdf)
}

// UploadPDF stores a PDF without extracting it.
func (h *Handler) UploadPDF(c *fiber.Ctx) error {
	up, closeFile, err := formUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}
	defer closeFile()

	doc, err := h.Ingestion.Store(c.UserContext(), up, middleware.UserID(c))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": doc.ID, "filename": doc.Filename, "status": "uploaded"})
}

func (h *Handler) ExtractText(c *fiber.Ctx) error {
	id, ok := paramID(c, "documentId")
	if !ok {
		return invalidParam(c, "documentId")
	}
	doc, err := h.Ingestion.ExtractStored(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"content": doc.ExtractedText, "length": utf8.RuneCountInString(doc.ExtractedText)})
}

// UploadPDFForOCR runs the full ingestion pipeline on one uploaded PDF.
func (h *Handler) UploadPDFForOCR(c *fiber.Ctx) error {
	up, closeFile, err := formUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}
	defer closeFile()

	summary, err := h.Ingestion.Ingest(c.UserContext(), up, middleware.UserID(c))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(summary)
}

func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	id, ok := paramID(c, "documentId")
	if !ok {
		return invalidParam(c, "documentId")
	}
	if err := h.Documents.Delete(c.UserContext(), id); err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Document and its questions have been deleted."})
}

func (h *Handler) DeleteQuestion(c *fiber.Ctx) error {
	id, ok := paramID(c, "questionId")
	if !ok {
		return invalidParam(c, "questionId")
	}
	if err := h.Documents.DeleteQuestion(c.UserContext(), id); err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Question has been deleted."})
}

func formUpload(c *fiber.Ctx) (services.Upload, func(), error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return services.Upload{}, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, nil, err
	}
	return services.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { f.Close() }
}

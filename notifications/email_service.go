package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/logger"
)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

// Mailer sends transactional email. Delivery failures are logged, never returned.
type Mailer interface {
	SendEmail(toName, toEmail, subject, htmlContent string)
}

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	BaseURL     string
	Client      *http.Client
	log         logger.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewEmailService returns a Brevo mailer, or a mailer that only logs when
// the API key or sender is not configured.
func NewEmailService(settings config.Settings, log logger.Logger) Mailer {
	log = log.With("email")
	if settings.BrevoAPIKey == "" || settings.EmailSender == "" {
		log.Warn("⚠️ Email service not configured. Missing API Key or Sender Email.")
		return logOnly{log: log}
	}
	name := settings.EmailSenderName
	if name == "" {
		name = "AI Cert Platform"
	}
	log.Info("✅ Email service initialized successfully.")
	return NewBrevoService(settings.BrevoAPIKey, settings.EmailSender, name, log)
}

func NewBrevoService(apiKey, senderEmail, senderName string, log logger.Logger) *BrevoService {
	return &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		BaseURL:     brevoURL,
		Client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

func (s *BrevoService) send(ctx context.Context, toEmail, toName, subject, htmlContent string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	recipientName := toName
	if recipientName == "" {
		recipientName = toEmail[:strings.Index(toEmail, "@")]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": recipientName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

func (s *BrevoService) SendEmail(toName, toEmail, subject, htmlContent string) {
	if err := s.send(context.Background(), toEmail, toName, subject, htmlContent); err != nil {
		s.log.Error("🔥 Failed to send email to %s: %v", toEmail, err)
		return
	}
	s.log.Info("✅ Email sent successfully to %s", toEmail)
}

type logOnly struct {
	log logger.Logger
}

func (l logOnly) SendEmail(_, toEmail, subject, _ string) {
	l.log.Info("Email client not initialized, skipping %q to %s", subject, toEmail)
}

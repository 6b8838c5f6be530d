package llm

import (
	"context"
	"errors"
	"strings"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/logger"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrDisabled is returned by the disabled completer.
var ErrDisabled = errors.New("no language model configured")

// placeholderKey is shipped in sample .env files and never valid.
const placeholderKey = "sk-test-key"

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer sends a chat request and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Enabled() bool
}

type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) { return "", ErrDisabled }
func (Disabled) Enabled() bool                                     { return false }

// NewFromConfig builds the configured provider wrapped in the shared rate limiter.
// Missing credentials give a Disabled completer rather than an error.
func NewFromConfig(ctx context.Context, settings config.Settings, log logger.Logger) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch settings.LLMProvider {
	case "gemini":
		if !usableKey(settings.GeminiAPIKey) {
			log.Warn("GEMINI_API_KEY not set, AI features disabled")
			return Disabled{}, nil
		}
		c, err = NewGemini(ctx, settings.GeminiAPIKey, settings.LLMModel)
	case "openai", "":
		if !usableKey(settings.OpenAIAPIKey) {
			log.Warn("OPENAI_API_KEY not set, AI features disabled")
			return Disabled{}, nil
		}
		c = NewOpenAI(settings.OpenAIAPIKey, settings.LLMModel)
	default:
		return nil, errors.New("unknown LLM_PROVIDER: " + settings.LLMProvider)
	}
	if err != nil {
		return nil, err
	}
	return NewRateLimited(c, settings.LLMRequestsPerMinute), nil
}

func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderKey
}

// splitMessages separates system instructions from the conversation, since
// both providers take them as a dedicated parameter.
func splitMessages(msgs []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}

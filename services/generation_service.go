package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/models"
	"gorm.io/gorm"
)

const (
	generationSourceRunes = 3000
	generationMaxTokens   = 4000
)

var questionTypeDescriptions = map[string]string{
	"multiple_choice": "four-option multiple choice",
	"short_answer":    "short answer",
	"essay":           "essay",
	"true_false":      "true/false",
	"fill_blank":      "fill in the blank",
}

var difficultyDescriptions = map[string]string{
	"beginner":     "beginner (basic concepts)",
	"intermediate": "intermediate (application and analysis)",
	"advanced":     "advanced (synthesis and evaluation)",
}

type GenerationSettings struct {
	QuestionTypes       []string `json:"questionTypes" validate:"omitempty,dive,oneof=multiple_choice short_answer essay true_false fill_blank"`
	Difficulty          string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	QuestionCount       int      `json:"questionCount" validate:"omitempty,min=1,max=100"`
	Language            string   `json:"language"`
	IncludeExplanations *bool    `json:"includeExplanations"`
	CustomPrompt        string   `json:"customPrompt"`
}

func (g GenerationSettings) withDefaults() GenerationSettings {
	if len(g.QuestionTypes) == 0 {
		g.QuestionTypes = []string{"multiple_choice"}
	}
	if g.Difficulty == "" {
		g.Difficulty = "intermediate"
	}
	if g.QuestionCount <= 0 {
		g.QuestionCount = 20
	}
	if g.Language == "" {
		g.Language = "ko"
	}
	if g.IncludeExplanations == nil {
		yes := true
		g.IncludeExplanations = &yes
	}
	return g
}

type GeneratedProblem struct {
	ID            uint     `json:"id,omitempty"`
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Difficulty    string   `json:"difficulty"`
	Choices       []string `json:"choices,omitempty"`
	Answer        string   `json:"answer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic"`
	Points        int      `json:"points"`
	EstimatedTime int      `json:"estimatedTime"`
}

type GenerationService struct {
	db          *gorm.DB
	llm         llm.Completer
	temperature float64
	log         logger.Logger
}

func NewGenerationService(db *gorm.DB, c llm.Completer, temperature float64, log logger.Logger) *GenerationService {
	return &GenerationService{db: db, llm: c, temperature: temperature, log: log.With("generate")}
}

// Generate asks the model for practice problems based on text and saves each
// one for the user. Problems that fail to save are skipped.
func (s *GenerationService) Generate(ctx context.Context, userID uint, text string, settings GenerationSettings) ([]GeneratedProblem, error) {
	if !s.llm.Enabled() {
		return nil, ErrInferenceUnavailable
	}
	settings = settings.withDefaults()

	response, err := s.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildGenerationPrompt(text, settings)}},
		MaxTokens:   generationMaxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("problem generation failed: %w", err)
	}

	problems := parseGeneratedProblems(response, settings.Difficulty)
	if len(problems) == 0 {
		s.log.Warn("Model response contained no usable problems")
		return []GeneratedProblem{}, nil
	}

	saved := make([]GeneratedProblem, 0, len(problems))
	for i, p := range problems {
		row := models.GeneratedProblem{
			UserID:        userID,
			QuestionText:  p.Question,
			QuestionType:  p.Type,
			Difficulty:    p.Difficulty,
			CorrectAnswer: p.Answer,
			Explanation:   p.Explanation,
			Topic:         p.Topic,
			Points:        p.Points,
			EstimatedTime: p.EstimatedTime,
		}
		if len(p.Choices) > 0 {
			b, _ := json.Marshal(p.Choices)
			row.Choices = string(b)
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			s.log.Error("Error saving problem %d: %v", i+1, err)
			continue
		}
		p.ID = row.ID
		saved = append(saved, p)
	}
	return saved, nil
}

func buildGenerationPrompt(text string, settings GenerationSettings) string {
	var types []string
	for _, t := range settings.QuestionTypes {
		if d, ok := questionTypeDescriptions[t]; ok {
			types = append(types, d)
		}
	}
	language := settings.Language
	if language == "ko" {
		language = "Korean"
	}
	explanations := "no"
	if *settings.IncludeExplanations {
		explanations = "yes"
	}
	custom := settings.CustomPrompt
	if custom == "" {
		custom = "none"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create %d study problems based on the following text.\n\n", settings.QuestionCount)
	fmt.Fprintf(&b, "**Text:**\n%s\n\n", truncateRunes(text, generationSourceRunes))
	b.WriteString("**Requirements:**\n")
	fmt.Fprintf(&b, "- Question types: %s\n", strings.Join(types, ", "))
	fmt.Fprintf(&b, "- Difficulty: %s\n", difficultyDescriptions[settings.Difficulty])
	fmt.Fprintf(&b, "- Language: %s\n", language)
	fmt.Fprintf(&b, "- Include explanations: %s\n\n", explanations)
	fmt.Fprintf(&b, "**Additional requirements:**\n%s\n\n", custom)
	fmt.Fprintf(&b, `**Output format (JSON):**
[
  {
    "question": "question text",
    "type": "question_type",
    "difficulty": "%s",
    "choices": ["choice 1", "choice 2", "choice 3", "choice 4"],
    "answer": "answer or answer index",
    "explanation": "explanation",
    "topic": "topic",
    "points": 1,
    "estimatedTime": 2
  }
]

Notes:
1. For multiple choice, answer is the index of the correct choice (0, 1, 2, 3).
2. For short answer and essay, answer is the answer text.
3. For true/false, answer is true or false.
4. For fill in the blank, mark the blank in the question with ___.
5. Base every problem on the provided text.
6. Give every problem a suitable topic.

Respond with the JSON array only.
`, settings.Difficulty)
	return b.String()
}

// parseGeneratedProblems decodes the first [ .. last ] span. Anything
// malformed yields no problems.
func parseGeneratedProblems(response, defaultDifficulty string) []GeneratedProblem {
	span, ok := sliceBetween(response, '[', ']')
	if !ok {
		return nil
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil
	}

	problems := make([]GeneratedProblem, 0, len(raw))
	for _, fields := range raw {
		if fields == nil {
			continue
		}
		p := GeneratedProblem{
			Question:      stringField(fields, "question", ""),
			Type:          stringField(fields, "type", "multiple_choice"),
			Difficulty:    stringField(fields, "difficulty", defaultDifficulty),
			Answer:        stringField(fields, "answer", ""),
			Explanation:   stringField(fields, "explanation", ""),
			Topic:         stringField(fields, "topic", ""),
			Points:        intField(fields, 1, "points"),
			EstimatedTime: intField(fields, 2, "estimatedTime", "estimated_time"),
		}
		if v, ok := fields["choices"]; ok {
			var choices []json.RawMessage
			if json.Unmarshal(v, &choices) == nil {
				for _, c := range choices {
					p.Choices = append(p.Choices, scalarString(c))
				}
			}
		}
		problems = append(problems, p)
	}
	return problems
}

func stringField(fields map[string]json.RawMessage, key, def string) string {
	v, ok := fields[key]
	if !ok {
		return def
	}
	if s := scalarString(v); s != "" {
		return s
	}
	return def
}

func intField(fields map[string]json.RawMessage, def int, keys ...string) int {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			return int(f)
		}
	}
	return def
}

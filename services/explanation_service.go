package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/models"
	"gorm.io/gorm"
)

const explainMaxTokens = 1000

const explanationPrompt = `Write a structured explanation of the following question in Markdown.

Question: %s

Options:
%s

Correct answer: %s

Use this layout:

## 📌 Answer

**The correct answer is %s.**

## ✅ Why it is correct

(explain clearly why the answer is right)

## ❌ Why the other options are wrong

### Option 1
- (why it is wrong)

(repeat for the remaining options)

## 💡 Key concepts

- **Concept 1**: description
- **Concept 2**: description

## 📚 Further study

1. First point
2. Second point

## 🔍 In practice (if relevant)

- How this is applied at work

---

Use Markdown so the explanation is easy to read.`

type Explanation struct {
	QuestionID   uint   `json:"question_id"`
	QuestionText string `json:"question_text"`
	Explanation  string `json:"explanation"`
}

type ExplanationService struct {
	db          *gorm.DB
	llm         llm.Completer
	temperature float64
	log         logger.Logger
}

func NewExplanationService(db *gorm.DB, c llm.Completer, temperature float64, log logger.Logger) *ExplanationService {
	return &ExplanationService{db: db, llm: c, temperature: temperature, log: log.With("explain")}
}

func (s *ExplanationService) Explain(ctx context.Context, questionID uint) (Explanation, error) {
	var q models.Question
	err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("options.id") }).
		First(&q, questionID).Error
	if err != nil {
		return Explanation{}, notFound(err, "question %d", questionID)
	}

	out := Explanation{QuestionID: q.ID, QuestionText: q.QuestionText}
	if !s.llm.Enabled() {
		out.Explanation = disabledExplanation(q.QuestionText)
		return out, nil
	}

	response, err := s.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildExplanationPrompt(q)}},
		MaxTokens:   explainMaxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.log.Error("Explanation for question %d failed: %v", q.ID, err)
		out.Explanation = fmt.Sprintf("An error occurred while generating the AI explanation: %v", err)
		return out, nil
	}
	out.Explanation = response
	return out, nil
}

func buildExplanationPrompt(q models.Question) string {
	lines := make([]string, 0, len(q.Options))
	correct := "no answer information"
	for i, o := range q.Options {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, o.OptionText))
		if o.IsCorrect && correct == "no answer information" {
			correct = o.OptionText
		}
	}
	return fmt.Sprintf(explanationPrompt, q.QuestionText, strings.Join(lines, "\n"), correct, correct)
}

func disabledExplanation(questionText string) string {
	return fmt.Sprintf(`This question is about %s...

Key points:
1. Read the question carefully and find the key terms.
2. Review each option before choosing an answer.
3. Revisiting the related concepts will help.

(AI explanations become available once a language model API key is configured.)`, truncateRunes(questionText, 50))
}

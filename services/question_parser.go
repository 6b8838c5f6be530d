package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/logger"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type ParsedOption struct {
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
}

type ParsedQuestion struct {
	Text    string         `json:"question_text"`
	Options []ParsedOption `json:"options"`
}

// CorrectCount is the number of options marked correct.
func (q ParsedQuestion) CorrectCount() int {
	n := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

const parsedQuestionsSchema = `{
	"type": "object",
	"properties": {
		"questions": {"type": "array"}
	}
}`

const questionExtractionPrompt = `You are an expert at extracting multiple-choice exam questions, their options and the correct answer from text and returning them as JSON.

Extract question information from the text below using these rules:
1. Questions usually start with a number (for example "1.", "2.").
2. Options usually start with a circled number or a digit with a parenthesis (for example "①", "②", "③", "④" or "1)", "2)", "3)", "4)").
3. The text may contain an explicit answer marker such as "정답: ①", "답: 1" or "Answer: 2". Use it to set "is_correct" to true on the matching option.
4. If a question has no explicit answer marker, do not extract it.
5. Do not include questions with fewer than four options, or text that is not a question.
6. Every extracted question must have a "question_text" field.
7. Every option must have an "option_text" field and an "is_correct" boolean field.
8. Return a single JSON object with a "questions" key holding the list, exactly like the example. Do not add any other text.

JSON output example:
{
  "questions": [
    {
      "question_text": "Text of the first question.",
      "options": [
        {"option_text": "First option", "is_correct": false},
        {"option_text": "Second option (the answer)", "is_correct": true},
        {"option_text": "Third option", "is_correct": false},
        {"option_text": "Fourth option", "is_correct": false}
      ]
    }
  ]
}

Source text:
---
%s
---`

type ParserConfig struct {
	MaxInputChars int
	Temperature   float64
	MaxTokens     int
}

// QuestionParser asks the language model to turn extracted text into
// multiple-choice questions. It never fails: anything unusable yields no
// questions.
type QuestionParser struct {
	llm    llm.Completer
	cfg    ParserConfig
	schema *jsonschema.Schema
	log    logger.Logger
}

func NewQuestionParser(c llm.Completer, cfg ParserConfig, log logger.Logger) *QuestionParser {
	return &QuestionParser{
		llm:    c,
		cfg:    cfg,
		schema: jsonschema.MustCompileString("parsed_questions.json", parsedQuestionsSchema),
		log:    log.With("parser"),
	}
}

func (p *QuestionParser) Parse(ctx context.Context, text string) []ParsedQuestion {
	if !p.llm.Enabled() {
		p.log.Warn("Language model is not configured, skipping question parsing")
		return []ParsedQuestion{}
	}

	text = truncateRunes(text, p.cfg.MaxInputChars)
	response, err := p.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(questionExtractionPrompt, text)}},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		p.log.Error("Question parsing call failed: %v", err)
		return []ParsedQuestion{}
	}

	questions, err := p.decode(response)
	if err != nil {
		p.log.Error("Failed to parse JSON from model response: %v", err)
		p.log.Debug("Received content: %s", response)
		return []ParsedQuestion{}
	}
	p.log.Info("Parsed %d questions", len(questions))
	return questions
}

func (p *QuestionParser) decode(response string) ([]ParsedQuestion, error) {
	span, ok := sliceBetween(response, '{', '}')
	if !ok {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var doc any
	if err := json.Unmarshal([]byte(span), &doc); err != nil {
		return nil, err
	}
	if err := p.schema.Validate(doc); err != nil {
		return nil, err
	}

	var envelope struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		return nil, err
	}

	questions := make([]ParsedQuestion, 0, len(envelope.Questions))
	for _, raw := range envelope.Questions {
		questions = append(questions, decodeQuestion(raw))
	}
	return questions, nil
}

// decodeQuestion applies per-field defaults. A non-object entry becomes a
// question with empty text, which persistence rejects.
func decodeQuestion(raw json.RawMessage) ParsedQuestion {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return ParsedQuestion{Options: []ParsedOption{}}
	}

	q := ParsedQuestion{Options: []ParsedOption{}}
	if v, ok := fields["question_text"]; ok {
		json.Unmarshal(v, &q.Text)
	}

	var options []json.RawMessage
	if v, ok := fields["options"]; ok {
		json.Unmarshal(v, &options)
	}
	for _, o := range options {
		q.Options = append(q.Options, decodeOption(o))
	}
	return q
}

func decodeOption(raw json.RawMessage) ParsedOption {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return ParsedOption{Text: scalarString(raw)}
	}

	var opt ParsedOption
	if v, ok := fields["option_text"]; ok {
		opt.Text = scalarString(v)
	}
	if v, ok := fields["is_correct"]; ok {
		opt.IsCorrect = truthy(v)
	}
	return opt
}

// truthy accepts a JSON bool, the strings "true"/"yes"/"1" and any non-zero number.
func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

// scalarString renders a JSON scalar as text: strings unquoted, null as "",
// anything else as its JSON source.
func scalarString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

// sliceBetween returns s from the first left to the last right, inclusive.
func sliceBetween(s string, left, right byte) (string, bool) {
	start := strings.IndexByte(s, left)
	end := strings.LastIndexByte(s, right)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (o *OpenAI) Enabled() bool { return true }

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	system, msgs := splitMessages(req.Messages)
	if len(msgs) == 0 {
		return "", errors.New("request has no user message")
	}

	input := make(responses.ResponseInputParam, 0, len(msgs))
	for _, m := range msgs {
		input = append(input, responses.ResponseInputItemParamOfMessage(
			responses.ResponseInputMessageContentListParam{
				responses.ResponseInputContentParamOfInputText(m.Content),
			},
			responses.EasyInputMessageRole(m.Role),
		))
	}

	params := responses.ResponseNewParams{
		Model:       o.model,
		Input:       responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}
	if system != "" {
		params.Instructions = openai.String(system)
	}

	response, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}
	return response.OutputText(), nil
}

package llm

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// openAIBackend generates via the OpenAI chat completions API, using
// strict JSON-schema response formats for object generation.
type openAIBackend struct {
	client  openai.Client
	limiter *rate.Limiter
}

func newOpenAIBackend(apiKey string, limiter *rate.Limiter) *openAIBackend {
	return &openAIBackend{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		limiter: limiter,
	}
}

func (b *openAIBackend) GenerateText(ctx context.Context, model, system, prompt string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "openai: rate limit wait")
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *openAIBackend) GenerateObject(ctx context.Context, model, prompt string, schema *jsonschema.Schema, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "openai: rate limit wait")
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   "structured_response",
		Schema: schema,
		Strict: openai.Bool(true),
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return eris.Wrap(err, "openai: structured completion")
	}
	if len(resp.Choices) == 0 {
		return eris.New("openai: no choices returned")
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return eris.Wrap(err, "openai: decode structured response")
	}
	return nil
}

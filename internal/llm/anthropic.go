package llm

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const anthropicMaxTokens = 2048

// anthropicBackend generates via the Anthropic messages API. Object
// generation embeds the schema in the prompt and parses the reply.
type anthropicBackend struct {
	client  sdk.Client
	limiter *rate.Limiter
}

func newAnthropicBackend(apiKey string, limiter *rate.Limiter) *anthropicBackend {
	return &anthropicBackend{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		limiter: limiter,
	}
}

func (b *anthropicBackend) GenerateText(ctx context.Context, model, system, prompt string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "anthropic: rate limit wait")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
		Temperature: sdk.Float(0.3),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", eris.New("anthropic: no text content returned")
	}
	return text.String(), nil
}

func (b *anthropicBackend) GenerateObject(ctx context.Context, model, prompt string, schema *jsonschema.Schema, out any) error {
	withSchema, err := promptWithSchema(prompt, schema)
	if err != nil {
		return eris.Wrap(err, "anthropic: marshal schema")
	}

	text, err := b.GenerateText(ctx, model, "", withSchema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), out); err != nil {
		return eris.Wrap(err, "anthropic: decode structured response")
	}
	return nil
}

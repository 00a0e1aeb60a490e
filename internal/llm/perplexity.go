package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// perplexityBackend generates via Perplexity's OpenAI-compatible chat
// completions endpoint. Object generation embeds the schema in the
// prompt and parses the reply.
type perplexityBackend struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func newPerplexityBackend(apiKey, baseURL string, limiter *rate.Limiter) *perplexityBackend {
	if baseURL == "" {
		baseURL = perplexityBaseURL
	}
	return &perplexityBackend{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: limiter,
	}
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model       string              `json:"model"`
	Messages    []perplexityMessage `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
}

type perplexityResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int               `json:"index"`
		Message perplexityMessage `json:"message"`
	} `json:"choices"`
}

func (b *perplexityBackend) GenerateText(ctx context.Context, model, system, prompt string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "perplexity: rate limit wait")
	}

	temperature := 0.3
	req := perplexityRequest{
		Model:       model,
		Temperature: &temperature,
	}
	if system != "" {
		req.Messages = append(req.Messages, perplexityMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, perplexityMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "perplexity: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "perplexity: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "perplexity: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("perplexity: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result perplexityResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "perplexity: unmarshal response")
	}
	if len(result.Choices) == 0 {
		return "", eris.New("perplexity: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (b *perplexityBackend) GenerateObject(ctx context.Context, model, prompt string, schema *jsonschema.Schema, out any) error {
	withSchema, err := promptWithSchema(prompt, schema)
	if err != nil {
		return eris.Wrap(err, "perplexity: marshal schema")
	}

	text, err := b.GenerateText(ctx, model, "", withSchema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), out); err != nil {
		return eris.Wrap(err, "perplexity: decode structured response")
	}
	return nil
}

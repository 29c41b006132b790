package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/dayloom/dayloom/config"
)

const completionMaxTokens = 4096

// ProviderError wraps a transport or HTTP failure of a completion call.
// The affected batch is lost; the pipeline continues with the next one.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "completion provider: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ContentPart is one piece of user content for a completion call: either
// text or a JPEG image with a detail hint.
type ContentPart struct {
	Text      string
	ImageJPEG []byte
	Detail    string
}

// CompletionClient talks to an OpenAI-compatible chat-completions endpoint.
// Calls are bounded by the configured timeout and are never retried.
type CompletionClient struct {
	client         openaigo.Client
	model          string
	embeddingModel string
	timeout        time.Duration
}

func NewCompletionClient(cfg *config.Config) (*CompletionClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion API key is not configured")
	}

	client := openaigo.NewClient(
		option.WithBaseURL(cfg.APIBaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.CompletionTimeout}),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.CompletionTimeout),
	)

	return &CompletionClient{
		client:         client,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.CompletionTimeout,
	}, nil
}

// Complete issues one chat completion and returns the raw response text.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt string, parts []ContentPart, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content := make([]openaigo.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		if part.ImageJPEG != nil {
			dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(part.ImageJPEG)
			content = append(content, openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{
				URL:    dataURL,
				Detail: part.Detail,
			}))
			continue
		}
		content = append(content, openaigo.TextContentPart(part.Text))
	}

	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(systemPrompt),
			openaigo.UserMessage(content),
		},
		Temperature: openaigo.Float(temperature),
		MaxTokens:   openaigo.Int(completionMaxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Err: fmt.Errorf("response contains no choices")}
	}

	text := resp.Choices[0].Message.Content
	zap.L().Debug("Completion response", zap.Int("length", len(text)))
	return text, nil
}

// Embed returns the embedding vector for one text, used by the activity
// memory.
func (c *CompletionClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Embeddings.New(ctx, openaigo.EmbeddingNewParams{
		Input: openaigo.EmbeddingNewParamsInputUnion{OfString: openaigo.String(text)},
		Model: openaigo.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &ProviderError{Err: fmt.Errorf("embedding response contains no data")}
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// CheckConnection issues a minimal completion to verify the endpoint is
// reachable and the key is valid. Returns the model's reply on success.
func (c *CompletionClient) CheckConnection(ctx context.Context) (string, error) {
	return c.Complete(ctx, "You are a connectivity probe. Reply with a short greeting.",
		[]ContentPart{{Text: "hi"}}, 0)
}

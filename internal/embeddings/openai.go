package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const defaultEmbeddingTimeout = 30 * time.Second

// OpenAIOptions configures the OpenAI embedding backend. BaseURL may point at
// any OpenAI-compatible server.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      openai.EmbeddingModel
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

type openAIModel struct {
	model      openai.EmbeddingModel
	dimensions int
	client     *openai.Client
}

// OpenAILoader returns a Loader that builds a client and verifies the model
// exists before handing it out.
func OpenAILoader(opts OpenAIOptions) Loader {
	return func(ctx context.Context) (Model, error) {
		if opts.APIKey == "" {
			return nil, fmt.Errorf("api key required")
		}
		model := opts.Model
		if model == "" {
			model = openai.EmbeddingModelTextEmbedding3Small
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultEmbeddingTimeout
		}

		reqOpts := []option.RequestOption{
			option.WithAPIKey(opts.APIKey),
			option.WithRequestTimeout(timeout),
		}
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
		}
		if opts.MaxRetries > 0 {
			reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))
		}
		cli := openai.NewClient(reqOpts...)

		if _, err := cli.Models.Get(ctx, string(model)); err != nil {
			return nil, fmt.Errorf("verify model %s: %w", model, err)
		}
		return &openAIModel{
			model:      model,
			dimensions: opts.Dimensions,
			client:     &cli,
		}, nil
	}
}

func (m *openAIModel) Infer(ctx context.Context, text string) (Vector, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: m.model,
	}
	if m.dimensions > 0 {
		params.Dimensions = openai.Int(int64(m.dimensions))
	}

	resp, err := m.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	// Convert []float64 to []float32
	embedding := resp.Data[0].Embedding
	vec := make(Vector, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	return Normalize(vec), nil
}

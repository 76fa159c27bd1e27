package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/siherrmann/radar/helper"
)

// OllamaConfig configures the Ollama embedding collaborator.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOllamaBatchEmbedder returns a batch embedder backed by an Ollama server.
func NewOllamaBatchEmbedder(config OllamaConfig) (BatchEmbedFunc, error) {
	if config.BaseURL == "" {
		return nil, helper.NewError("ollama client", fmt.Errorf("base url is empty"))
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, helper.NewError("parse ollama url", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	client := api.NewClient(u, &http.Client{Timeout: timeout})

	return func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return [][]float32{}, nil
		}

		res, err := client.Embed(ctx, &api.EmbedRequest{
			Model: config.Model,
			Input: texts,
		})
		if err != nil {
			return nil, helper.NewError("ollama embed", err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, helper.NewError("ollama embed", fmt.Errorf("%w: got %d want %d", ErrBatchSizeMismatch, len(res.Embeddings), len(texts)))
		}

		out := make([][]float32, len(res.Embeddings))
		for i, embedding := range res.Embeddings {
			vec := make([]float32, len(embedding))
			for j, v := range embedding {
				vec[j] = float32(v)
			}
			out[i] = vec
		}

		return out, nil
	}, nil
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/radar/helper"
)

const (
	// DefaultEmbeddingModel produces 768-dimensional embeddings.
	DefaultEmbeddingModel = "sentence-transformers/all-mpnet-base-v2"
	defaultEmbeddingOnnx  = "onnx/model.onnx"
)

// DefaultEmbedder creates an embedder using a real sentence transformer model
// Uses the all-mpnet-base-v2 model which produces 768-dimensional embeddings
func DefaultEmbedder() (EmbedFunc, error) {
	batch, err := DefaultBatchEmbedder()
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		embeddings, err := batch(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return embeddings[0], nil
	}, nil
}

// DefaultBatchEmbedder creates a batch embedder on the local sentence transformer model.
func DefaultBatchEmbedder() (BatchEmbedFunc, error) {
	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(DefaultEmbeddingModel, defaultEmbeddingOnnx)
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(ctx context.Context, texts []string) ([][]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(texts) == 0 {
			return [][]float32{}, nil
		}

		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: got %d want %d", ErrBatchSizeMismatch, len(result.Embeddings), len(texts))
		}

		return result.Embeddings, nil
	}, nil
}

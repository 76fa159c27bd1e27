package pipeline

import (
	"context"
	"log/slog"

	"github.com/siherrmann/radar/model"
)

// EmbedFunc is a function that generates an embedding for text
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// BatchEmbedFunc generates embeddings for several texts in one call.
// The result must have the same length and order as texts.
type BatchEmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// ExtractFunc extracts entities, connections and trends from text
type ExtractFunc func(ctx context.Context, text string) (*model.ExtractionResult, error)

// AnswerFunc synthesizes an answer to question from the given signals
type AnswerFunc func(ctx context.Context, question string, signals []*model.Signal) (string, error)

// Pipeline combines the collaborators used by one ingestion or question
type Pipeline struct {
	Embedder      EmbedFunc
	BatchEmbedder BatchEmbedFunc // Optional - preferred by the batcher when set
	Extractor     ExtractFunc    // Optional - without it signals are stored without graph data
	Answerer      AnswerFunc     // Optional - required for questions
}

// NewPipeline creates a new processing pipeline
func NewPipeline(embedder EmbedFunc, extractor ExtractFunc) *Pipeline {
	return &Pipeline{
		Embedder:  embedder,
		Extractor: extractor,
	}
}

// SetBatchEmbedder sets the batched embedding function
func (p *Pipeline) SetBatchEmbedder(embedder BatchEmbedFunc) {
	p.BatchEmbedder = embedder
}

// SetExtractor sets the extraction function
func (p *Pipeline) SetExtractor(extractor ExtractFunc) {
	p.Extractor = extractor
}

// SetAnswerer sets the answer synthesis function
func (p *Pipeline) SetAnswerer(answerer AnswerFunc) {
	p.Answerer = answerer
}

// Extract runs the extractor. It never fails for extraction errors, those
// degrade to an empty result. Only a cancelled context is returned.
func (p *Pipeline) Extract(ctx context.Context, text string, logger *slog.Logger) (*model.ExtractionResult, error) {
	if p.Extractor == nil {
		return &model.ExtractionResult{}, nil
	}
	return SafeExtract(p.Extractor, logger)(ctx, text)
}

// EmbedText embeds a single text, preferring the single-text embedder.
func (p *Pipeline) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if p.Embedder != nil {
		return p.Embedder(ctx, text)
	}
	if p.BatchEmbedder != nil {
		vectors, err := p.BatchEmbedder(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, ErrBatchSizeMismatch
		}
		return vectors[0], nil
	}
	return nil, ErrNoEmbedder
}

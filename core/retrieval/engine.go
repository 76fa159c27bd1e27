package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// SignalSearcher finds the stored signals closest to a vector by L2 distance.
type SignalSearcher interface {
	SelectSignalsByDistance(ctx context.Context, embedding []float32, limit int) ([]*model.Signal, error)
}

// Engine selects the signals used as context for answering a question
type Engine struct {
	signals SignalSearcher
	space   model.VectorSpace
	logger  *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(signals SignalSearcher, space model.VectorSpace, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		signals: signals,
		space:   space,
		logger:  logger,
	}
}

// Retrieve returns at most k signals with a vector, ascending by distance
// to query. Ties keep insertion order. No stored vectors or k <= 0 give an
// empty result. A cancelled context returns no result at all.
func (e *Engine) Retrieve(ctx context.Context, query []float32, k int) ([]*model.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := e.space.Validate(query)
	if err != nil {
		return nil, helper.NewError("validate query", err)
	}
	if k <= 0 {
		return []*model.Signal{}, nil
	}

	candidates, err := e.signals.SelectSignalsByDistance(ctx, query, k)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, helper.NewError("select signals by distance", err)
	}

	results := make([]*model.Signal, 0, len(candidates))
	for _, s := range candidates {
		if !s.HasVector() {
			continue
		}
		results = append(results, s)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}

	e.logger.Debug("Retrieved signals", slog.Int("k", k), slog.Int("found", len(results)))

	return results, nil
}

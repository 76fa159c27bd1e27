package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoEmbedder is returned when neither an EmbedFunc nor a BatchEmbedFunc is set.
	ErrNoEmbedder = errors.New("no embedder configured")
	// ErrBatchSizeMismatch is returned when a batch embedder returns a
	// different number of vectors than it was given texts.
	ErrBatchSizeMismatch = errors.New("embedding batch size mismatch")
)

// EmbeddingBatcher maps an ordered list of texts to vectors of the same
// order. Work runs on a bounded number of goroutines, transient failures
// are retried with exponential backoff and a circuit breaker guards the
// embedding collaborator.
type EmbeddingBatcher struct {
	embed   EmbedFunc
	batch   BatchEmbedFunc
	space   model.VectorSpace
	config  model.EmbeddingConfig
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewEmbeddingBatcher creates a batcher. If batch is set it is used for
// chunks of config.BatchSize texts, otherwise embed is called per text.
func NewEmbeddingBatcher(embed EmbedFunc, batch BatchEmbedFunc, config model.EmbeddingConfig, logger *slog.Logger) (*EmbeddingBatcher, error) {
	if embed == nil && batch == nil {
		return nil, helper.NewError("embedding batcher", ErrNoEmbedder)
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := model.DefaultEmbeddingConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.FailurePolicy == "" {
		config.FailurePolicy = model.FailBatch
	}
	if config.FailurePolicy != model.FailBatch && config.FailurePolicy != model.Degrade {
		return nil, helper.NewError("embedding batcher", fmt.Errorf("unknown failure policy %q", config.FailurePolicy))
	}

	b := &EmbeddingBatcher{
		embed:  embed,
		batch:  batch,
		space:  model.NewVectorSpace(config.Dimension),
		config: config,
		logger: logger,
	}

	if config.BreakerFailureRatio > 0 {
		b.breaker = gobreaker.NewCircuitBreaker(breakerSettings(config, logger))
	}

	return b, nil
}

// breakerSettings trips after at least three requests when the failure
// ratio reaches config.BreakerFailureRatio. Closed state counts are cleared
// every BreakerTimeout so old successes do not dilute the ratio.
func breakerSettings(config model.EmbeddingConfig, logger *slog.Logger) gobreaker.Settings {
	timeout := config.BreakerTimeout
	if timeout <= 0 {
		timeout = model.DefaultEmbeddingConfig().BreakerTimeout
	}

	return gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= config.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker changed state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
}

// Space returns the vector space all returned vectors belong to.
func (b *EmbeddingBatcher) Space() model.VectorSpace {
	return b.space
}

// EmbedMany returns one vector per item in input order. Empty input returns
// an empty result without calling the embedder. With the Degrade policy a
// failed item gets a nil vector, with FailBatch the first failure is returned.
func (b *EmbeddingBatcher) EmbedMany(ctx context.Context, items []string) ([][]float32, error) {
	out := make([][]float32, len(items))
	if len(items) == 0 {
		return out, nil
	}

	step := 1
	if b.batch != nil {
		step = b.config.BatchSize
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	for start := 0; start < len(items); start += step {
		end := min(start+step, len(items))
		g.Go(func() error {
			vectors, err := b.embedRange(gctx, items[start:end])
			if err != nil {
				if b.config.FailurePolicy == model.FailBatch || ctx.Err() != nil {
					return err
				}
				b.logger.Warn("Embedding failed, continuing without vectors",
					slog.Int("from", start),
					slog.Int("to", end),
					slog.String("error", err.Error()),
				)
				return nil
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, helper.NewError("embed many", err)
	}

	return out, nil
}

// embedRange embeds one chunk with retries and validates every vector.
func (b *EmbeddingBatcher) embedRange(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		result, err := b.call(ctx, texts)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(result) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: got %d want %d", ErrBatchSizeMismatch, len(result), len(texts)))
		}
		for _, v := range result {
			if err := b.space.Validate(v); err != nil {
				return backoff.Permanent(err)
			}
		}
		vectors = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.config.InitialBackoff
	policy.MaxInterval = b.config.MaxBackoff
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(b.config.MaxRetries)), ctx),
		func(err error, wait time.Duration) {
			b.logger.Debug("Retrying embedding", slog.String("error", err.Error()), slog.Duration("wait", wait))
		},
	)
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// call invokes the collaborator once, through the breaker if enabled.
func (b *EmbeddingBatcher) call(ctx context.Context, texts []string) ([][]float32, error) {
	run := func() (interface{}, error) {
		if b.batch != nil {
			return b.batch(ctx, texts)
		}
		v, err := b.embed(ctx, texts[0])
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	}

	if b.breaker == nil {
		result, err := run()
		if err != nil {
			return nil, err
		}
		return result.([][]float32), nil
	}

	result, err := b.breaker.Execute(run)
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

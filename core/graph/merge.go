package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// ErrVectorCountMismatch is returned when the embedder returns a different
// number of vectors than texts it was given.
var ErrVectorCountMismatch = errors.New("embedder returned wrong number of vectors")

// Coordinator merges one signal and its extraction into the graph as a
// single transaction.
type Coordinator struct {
	store    Store
	embedder BatchEmbedder
	policy   model.MergePolicy
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator with the first-write-wins policy.
func NewCoordinator(store Store, embedder BatchEmbedder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:    store,
		embedder: embedder,
		policy:   model.FirstWriteWins,
		logger:   logger,
	}
}

// WithPolicy sets the merge policy for existing entities and trends.
func (c *Coordinator) WithPolicy(policy model.MergePolicy) (*Coordinator, error) {
	if policy != model.FirstWriteWins {
		return nil, helper.NewError("merge policy", fmt.Errorf("unsupported merge policy %q", policy))
	}
	c.policy = policy
	return c, nil
}

// Merge persists the signal, resolves and creates entities and trends, and
// stores every connection whose endpoints resolved in this ingestion.
// Either everything is committed or nothing is.
func (c *Coordinator) Merge(ctx context.Context, signal *model.Signal, extraction *model.ExtractionResult) (*model.MergeResult, error) {
	if signal == nil {
		return nil, helper.NewError("merge", fmt.Errorf("signal is nil"))
	}

	normalized, invalid := extraction.Normalize()
	if invalid > 0 {
		c.logger.Debug("Dropped invalid extracted items", slog.Int("count", invalid))
	}

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return nil, helper.NewError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.InsertSignal(ctx, signal)
	if err != nil {
		return nil, helper.NewError("insert signal", err)
	}

	result := &model.MergeResult{Signal: signal}
	resolver := NewResolver(c.logger)

	newEntities, reused, err := resolver.Plan(ctx, tx, normalized.Entities)
	if err != nil {
		return nil, err
	}
	result.EntitiesReused = reused

	newTrends, reused, err := planTrends(ctx, tx, normalized.Trends)
	if err != nil {
		return nil, err
	}
	result.TrendsReused = reused

	texts := make([]string, 0, len(newEntities)+len(newTrends))
	for _, e := range newEntities {
		texts = append(texts, embeddingText(e.Name, e.Description))
	}
	for _, t := range newTrends {
		texts = append(texts, embeddingText(t.Name, t.Description))
	}

	vectors, err := c.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	for i, e := range newEntities {
		_, created, err := resolver.Create(ctx, tx, e, vectors[i])
		if err != nil {
			return nil, err
		}
		if created {
			result.EntitiesCreated++
		} else {
			result.EntitiesReused++
		}
	}

	offset := len(newEntities)
	for j, t := range newTrends {
		trend := &model.Trend{
			Name:        t.Name,
			Description: t.Description,
			Velocity:    t.Velocity,
			Embedding:   vectors[offset+j],
		}
		created, err := tx.InsertTrend(ctx, trend)
		if err != nil {
			return nil, helper.NewError("insert trend", err)
		}
		if created {
			result.TrendsCreated++
		} else {
			result.TrendsReused++
		}
	}

	for _, conn := range normalized.Connections {
		sourceID, okSource := resolver.Lookup(conn.Source)
		targetID, okTarget := resolver.Lookup(conn.Target)
		if !okSource || !okTarget {
			result.DroppedConnections++
			c.logger.Debug("Dropped connection with unresolved endpoint",
				slog.String("source", conn.Source),
				slog.String("target", conn.Target),
			)
			continue
		}

		connection := &model.Connection{
			SourceID: sourceID,
			TargetID: targetID,
			Type:     conn.Type,
			Metadata: model.NewConnectionMetadata(conn.Description, signal.RID),
		}
		err = tx.InsertConnection(ctx, connection)
		if err != nil {
			return nil, helper.NewError("insert connection", err)
		}
		result.ConnectionsCreated++
	}

	err = tx.Commit()
	if err != nil {
		return nil, helper.NewError("commit", err)
	}

	c.logger.Info("Merged signal",
		slog.String("rid", signal.RID.String()),
		slog.Int("entities_created", result.EntitiesCreated),
		slog.Int("entities_reused", result.EntitiesReused),
		slog.Int("trends_created", result.TrendsCreated),
		slog.Int("connections_created", result.ConnectionsCreated),
		slog.Int("connections_dropped", result.DroppedConnections),
	)

	return result, nil
}

// embed calls the embedder once for all texts. Missing vectors stay nil.
func (c *Coordinator) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.embedder == nil {
		return make([][]float32, len(texts)), nil
	}

	vectors, err := c.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, helper.NewError("embed", err)
	}
	if len(vectors) != len(texts) {
		return nil, helper.NewError("embed", fmt.Errorf("%w: got %d want %d", ErrVectorCountMismatch, len(vectors), len(texts)))
	}

	return vectors, nil
}

// planTrends returns the trends missing from the store, first occurrence
// of each name only, and the number of distinct names already present.
func planTrends(ctx context.Context, store TrendStore, trends []model.ExtractedTrend) ([]model.ExtractedTrend, int, error) {
	seen := map[string]bool{}
	missing := []model.ExtractedTrend{}
	reused := 0

	for _, t := range trends {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true

		_, err := store.SelectTrendByName(ctx, t.Name)
		switch {
		case err == nil:
			reused++
		case errors.Is(err, helper.ErrNotFound):
			missing = append(missing, t)
		default:
			return nil, 0, helper.NewError("lookup trend", err)
		}
	}

	return missing, reused, nil
}

func embeddingText(name, description string) string {
	if description == "" {
		return name
	}
	return name + ": " + description
}

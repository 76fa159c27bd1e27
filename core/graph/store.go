package graph

import (
	"context"

	"github.com/siherrmann/radar/model"
)

// EntityStore reads and writes entities inside one unit of work.
type EntityStore interface {
	InsertEntity(ctx context.Context, entity *model.Entity) (bool, error)
	SelectEntityByName(ctx context.Context, name string) (*model.Entity, error)
}

// TrendStore reads and writes trends inside one unit of work.
type TrendStore interface {
	InsertTrend(ctx context.Context, trend *model.Trend) (bool, error)
	SelectTrendByName(ctx context.Context, name string) (*model.Trend, error)
}

// Tx is one ingestion's transaction. Rollback after Commit must be harmless.
type Tx interface {
	EntityStore
	TrendStore
	InsertSignal(ctx context.Context, signal *model.Signal) error
	InsertConnection(ctx context.Context, connection *model.Connection) error
	Commit() error
	Rollback() error
}

// Store starts transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// StoreFunc adapts a function to a Store.
type StoreFunc func(ctx context.Context) (Tx, error)

// Begin calls f(ctx).
func (f StoreFunc) Begin(ctx context.Context) (Tx, error) {
	return f(ctx)
}

// BatchEmbedder maps texts to vectors of the same length and order.
type BatchEmbedder interface {
	EmbedMany(ctx context.Context, items []string) ([][]float32, error)
}

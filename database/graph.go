package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// GraphStore opens transactions spanning all graph tables.
type GraphStore struct {
	db          *helper.Database
	Signals     *SignalsDBHandler
	Entities    *EntitiesDBHandler
	Connections *ConnectionsDBHandler
	Trends      *TrendsDBHandler
}

// NewGraphStore creates all handlers in dependency order.
func NewGraphStore(db *helper.Database, dimension int, force bool) (*GraphStore, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	signals, err := NewSignalsDBHandler(db, dimension, force)
	if err != nil {
		return nil, helper.NewError("create signals handler", err)
	}

	entities, err := NewEntitiesDBHandler(db, dimension, force)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	connections, err := NewConnectionsDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create connections handler", err)
	}

	trends, err := NewTrendsDBHandler(db, dimension, force)
	if err != nil {
		return nil, helper.NewError("create trends handler", err)
	}

	return &GraphStore{
		db:          db,
		Signals:     signals,
		Entities:    entities,
		Connections: connections,
		Trends:      trends,
	}, nil
}

// Begin starts a transaction. The caller must Commit or Rollback it.
func (s *GraphStore) Begin(ctx context.Context) (*GraphTx, error) {
	tx, err := s.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}

	return &GraphTx{
		Tx:                   tx,
		SignalsDBHandler:     s.Signals.WithTx(tx),
		EntitiesDBHandler:    s.Entities.WithTx(tx),
		ConnectionsDBHandler: s.Connections.WithTx(tx),
		TrendsDBHandler:      s.Trends.WithTx(tx),
	}, nil
}

// Stats counts the rows of every table.
func (s *GraphStore) Stats(ctx context.Context) (*model.GraphStats, error) {
	stats := &model.GraphStats{}
	var err error

	if stats.Signals, err = s.Signals.CountSignals(ctx); err != nil {
		return nil, helper.NewError("count signals", err)
	}
	if stats.Entities, err = s.Entities.CountEntities(ctx); err != nil {
		return nil, helper.NewError("count entities", err)
	}
	if stats.Connections, err = s.Connections.CountConnections(ctx); err != nil {
		return nil, helper.NewError("count connections", err)
	}
	if stats.Trends, err = s.Trends.CountTrends(ctx); err != nil {
		return nil, helper.NewError("count trends", err)
	}

	return stats, nil
}

// Snapshot reads the whole entity graph.
func (s *GraphStore) Snapshot(ctx context.Context) (*model.GraphSnapshot, error) {
	entities, err := s.Entities.SelectAllEntities(ctx)
	if err != nil {
		return nil, helper.NewError("select entities", err)
	}
	connections, err := s.Connections.SelectAllConnections(ctx)
	if err != nil {
		return nil, helper.NewError("select connections", err)
	}
	trends, err := s.Trends.SelectAllTrends(ctx)
	if err != nil {
		return nil, helper.NewError("select trends", err)
	}

	return &model.GraphSnapshot{
		Entities:    entities,
		Connections: connections,
		Trends:      trends,
	}, nil
}

// GraphTx is one unit of work over all graph tables.
type GraphTx struct {
	*sql.Tx
	*SignalsDBHandler
	*EntitiesDBHandler
	*ConnectionsDBHandler
	*TrendsDBHandler
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	loadSql "github.com/siherrmann/radar/sql"
)

// ConnectionsDBHandlerFunctions defines the interface for Connections database operations.
type ConnectionsDBHandlerFunctions interface {
	InsertConnection(ctx context.Context, connection *model.Connection) error
	SelectConnectionsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Connection, error)
	SelectConnectionsToEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Connection, error)
	SelectConnectionsOfEntity(ctx context.Context, entityID uuid.UUID) ([]model.ConnectionHop, error)
	SelectAllConnections(ctx context.Context) ([]*model.Connection, error)
	CountConnections(ctx context.Context) (int64, error)
}

// ConnectionsDBHandler handles connection-related database operations
type ConnectionsDBHandler struct {
	db *helper.Database
	q  helper.Querier
}

// NewConnectionsDBHandler creates a new connections database handler.
// The entities table has to exist before.
func NewConnectionsDBHandler(db *helper.Database, force bool) (*ConnectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	connectionsDbHandler := &ConnectionsDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadConnectionsSql(connectionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load connections sql", err)
	}

	err = connectionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ConnectionsDBHandler")

	return connectionsDbHandler, nil
}

// CreateTable creates the 'connections' table in the database.
func (h *ConnectionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_connections();`)
	if err != nil {
		return helper.NewError("init connections", err)
	}

	h.db.Logger.Info("Checked/created table connections")

	return nil
}

// WithTx returns a handler running its statements inside tx.
func (h *ConnectionsDBHandler) WithTx(tx *sql.Tx) *ConnectionsDBHandler {
	return &ConnectionsDBHandler{db: h.db, q: tx}
}

// InsertConnection inserts a new connection between two persisted entities
func (h *ConnectionsDBHandler) InsertConnection(ctx context.Context, connection *model.Connection) error {
	if connection.Metadata == nil {
		connection.Metadata = model.Metadata{}
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_connection($1, $2, $3, $4)`,
		connection.SourceID,
		connection.TargetID,
		string(connection.Type),
		connection.Metadata,
	)

	err := row.Scan(
		&connection.ID,
		&connection.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectConnectionsFromEntity retrieves the outgoing connections of an entity
func (h *ConnectionsDBHandler) SelectConnectionsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Connection, error) {
	return h.selectConnections(ctx, `SELECT * FROM select_connections_from_entity($1)`, entityID)
}

// SelectConnectionsToEntity retrieves the incoming connections of an entity
func (h *ConnectionsDBHandler) SelectConnectionsToEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Connection, error) {
	return h.selectConnections(ctx, `SELECT * FROM select_connections_to_entity($1)`, entityID)
}

// SelectConnectionsOfEntity retrieves outgoing and incoming connections with direction.
// A self-loop is returned once, as outgoing.
func (h *ConnectionsDBHandler) SelectConnectionsOfEntity(ctx context.Context, entityID uuid.UUID) ([]model.ConnectionHop, error) {
	outgoing, err := h.SelectConnectionsFromEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	incoming, err := h.SelectConnectionsToEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	hops := make([]model.ConnectionHop, 0, len(outgoing)+len(incoming))
	for _, c := range outgoing {
		hops = append(hops, model.ConnectionHop{Connection: c, IsOutgoing: true})
	}
	for _, c := range incoming {
		if c.SourceID == entityID {
			continue
		}
		hops = append(hops, model.ConnectionHop{Connection: c, IsOutgoing: false})
	}

	return hops, nil
}

// SelectAllConnections retrieves every connection in creation order
func (h *ConnectionsDBHandler) SelectAllConnections(ctx context.Context) ([]*model.Connection, error) {
	return h.selectConnections(ctx, `SELECT * FROM select_all_connections()`)
}

// CountConnections returns the number of stored connections.
func (h *ConnectionsDBHandler) CountConnections(ctx context.Context) (int64, error) {
	var count int64
	err := h.q.QueryRowContext(ctx, `SELECT count_connections()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func (h *ConnectionsDBHandler) selectConnections(ctx context.Context, query string, args ...any) ([]*model.Connection, error) {
	rows, err := h.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	connections := []*model.Connection{}
	for rows.Next() {
		connection := &model.Connection{}
		var connectionType string
		err := rows.Scan(
			&connection.ID,
			&connection.SourceID,
			&connection.TargetID,
			&connectionType,
			&connection.Metadata,
			&connection.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		connection.Type = model.ConnectionType(connectionType)

		connections = append(connections, connection)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return connections, nil
}

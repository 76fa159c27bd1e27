package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	loadSql "github.com/siherrmann/radar/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(ctx context.Context, entity *model.Entity) (bool, error)
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(ctx context.Context, name string) (*model.Entity, error)
	SelectAllEntities(ctx context.Context) ([]*model.Entity, error)
	SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int) ([]*model.Entity, error)
	CountEntities(ctx context.Context) (int64, error)
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db        *helper.Database
	q         helper.Querier
	dimension int
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, dimension int, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", dimension))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db:        db,
		q:         db.Instance,
		dimension: dimension,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities($1);`, h.dimension)
	if err != nil {
		return helper.NewError("init entities", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// WithTx returns a handler running its statements inside tx.
func (h *EntitiesDBHandler) WithTx(tx *sql.Tx) *EntitiesDBHandler {
	return &EntitiesDBHandler{db: h.db, q: tx, dimension: h.dimension}
}

// InsertEntity inserts the entity unless its name is already taken.
// It returns false, and leaves the entity untouched, if the name exists.
func (h *EntitiesDBHandler) InsertEntity(ctx context.Context, entity *model.Entity) (bool, error) {
	if len(entity.Embedding) > 0 && len(entity.Embedding) != h.dimension {
		return false, helper.NewError("insert entity", fmt.Errorf("%w: got %d want %d", model.ErrDimensionMismatch, len(entity.Embedding), h.dimension))
	}
	if entity.Details == nil {
		entity.Details = model.Metadata{}
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entity($1, $2, $3, $4)`,
		entity.Name,
		string(entity.Type),
		entity.Details,
		vectorParam(entity.Embedding),
	)

	err := row.Scan(
		&entity.ID,
		&entity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return true, nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	row := h.q.QueryRowContext(ctx, `SELECT * FROM select_entity($1)`, id)

	entity, err := scanEntity(row.Scan, nil)
	if err != nil {
		return nil, scanError(err)
	}

	return entity, nil
}

// SelectEntityByName retrieves an entity by its exact name
func (h *EntitiesDBHandler) SelectEntityByName(ctx context.Context, name string) (*model.Entity, error) {
	row := h.q.QueryRowContext(ctx, `SELECT * FROM select_entity_by_name($1)`, name)

	entity, err := scanEntity(row.Scan, nil)
	if err != nil {
		return nil, scanError(err)
	}

	return entity, nil
}

// SelectAllEntities retrieves every entity in creation order
func (h *EntitiesDBHandler) SelectAllEntities(ctx context.Context) ([]*model.Entity, error) {
	rows, err := h.q.QueryContext(ctx, `SELECT * FROM select_all_entities()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntityRows(rows, false)
}

// SelectEntitiesBySimilarity returns the entities closest to embedding
func (h *EntitiesDBHandler) SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int) ([]*model.Entity, error) {
	if len(embedding) != h.dimension {
		return nil, helper.NewError("select entities by similarity", fmt.Errorf("%w: got %d want %d", model.ErrDimensionMismatch, len(embedding), h.dimension))
	}

	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_entities_by_similarity($1, $2)`,
		pgvector.NewVector(embedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntityRows(rows, true)
}

// CountEntities returns the number of stored entities.
func (h *EntitiesDBHandler) CountEntities(ctx context.Context) (int64, error) {
	var count int64
	err := h.q.QueryRowContext(ctx, `SELECT count_entities()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanEntityRows(rows *sql.Rows, withDistance bool) ([]*model.Entity, error) {
	entities := []*model.Entity{}
	for rows.Next() {
		var distance float64
		var distancePtr *float64
		if withDistance {
			distancePtr = &distance
		}
		entity, err := scanEntity(rows.Scan, distancePtr)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

func scanEntity(scan func(dest ...any) error, distance *float64) (*model.Entity, error) {
	entity := &model.Entity{}
	var entityType string
	var embedding *pgvector.Vector

	dest := []any{
		&entity.ID,
		&entity.Name,
		&entityType,
		&entity.Details,
		&embedding,
		&entity.CreatedAt,
	}
	if distance != nil {
		dest = append(dest, distance)
	}

	err := scan(dest...)
	if err != nil {
		return nil, err
	}

	entity.Type = model.EntityType(entityType)
	entity.Embedding = vectorValue(embedding)

	return entity, nil
}

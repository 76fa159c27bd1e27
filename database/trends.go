package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	loadSql "github.com/siherrmann/radar/sql"
)

// TrendsDBHandlerFunctions defines the interface for Trends database operations.
type TrendsDBHandlerFunctions interface {
	InsertTrend(ctx context.Context, trend *model.Trend) (bool, error)
	SelectTrendByName(ctx context.Context, name string) (*model.Trend, error)
	SelectAllTrends(ctx context.Context) ([]*model.Trend, error)
	CountTrends(ctx context.Context) (int64, error)
}

// TrendsDBHandler handles trend-related database operations
type TrendsDBHandler struct {
	db        *helper.Database
	q         helper.Querier
	dimension int
}

// NewTrendsDBHandler creates a new trends database handler.
func NewTrendsDBHandler(db *helper.Database, dimension int, force bool) (*TrendsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", dimension))
	}

	trendsDbHandler := &TrendsDBHandler{
		db:        db,
		q:         db.Instance,
		dimension: dimension,
	}

	err := loadSql.LoadTrendsSql(trendsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load trends sql", err)
	}

	err = trendsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized TrendsDBHandler")

	return trendsDbHandler, nil
}

// CreateTable creates the 'trends' table in the database.
func (h *TrendsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_trends($1);`, h.dimension)
	if err != nil {
		return helper.NewError("init trends", err)
	}

	h.db.Logger.Info("Checked/created table trends")

	return nil
}

// WithTx returns a handler running its statements inside tx.
func (h *TrendsDBHandler) WithTx(tx *sql.Tx) *TrendsDBHandler {
	return &TrendsDBHandler{db: h.db, q: tx, dimension: h.dimension}
}

// InsertTrend inserts the trend unless its name is already taken.
func (h *TrendsDBHandler) InsertTrend(ctx context.Context, trend *model.Trend) (bool, error) {
	if len(trend.Embedding) > 0 && len(trend.Embedding) != h.dimension {
		return false, helper.NewError("insert trend", fmt.Errorf("%w: got %d want %d", model.ErrDimensionMismatch, len(trend.Embedding), h.dimension))
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_trend($1, $2, $3, $4)`,
		trend.Name,
		trend.Description,
		trend.Velocity,
		vectorParam(trend.Embedding),
	)

	err := row.Scan(
		&trend.ID,
		&trend.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	if trend.Velocity == "" {
		trend.Velocity = model.DefaultVelocity
	}

	return true, nil
}

// SelectTrendByName retrieves a trend by its exact name
func (h *TrendsDBHandler) SelectTrendByName(ctx context.Context, name string) (*model.Trend, error) {
	row := h.q.QueryRowContext(ctx, `SELECT * FROM select_trend_by_name($1)`, name)

	trend, err := scanTrend(row.Scan)
	if err != nil {
		return nil, scanError(err)
	}

	return trend, nil
}

// SelectAllTrends retrieves every trend in creation order
func (h *TrendsDBHandler) SelectAllTrends(ctx context.Context) ([]*model.Trend, error) {
	rows, err := h.q.QueryContext(ctx, `SELECT * FROM select_all_trends()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	trends := []*model.Trend{}
	for rows.Next() {
		trend, err := scanTrend(rows.Scan)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		trends = append(trends, trend)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return trends, nil
}

// CountTrends returns the number of stored trends.
func (h *TrendsDBHandler) CountTrends(ctx context.Context) (int64, error) {
	var count int64
	err := h.q.QueryRowContext(ctx, `SELECT count_trends()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanTrend(scan func(dest ...any) error) (*model.Trend, error) {
	trend := &model.Trend{}
	var embedding *pgvector.Vector

	err := scan(
		&trend.ID,
		&trend.Name,
		&trend.Description,
		&trend.Velocity,
		&embedding,
		&trend.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trend.Embedding = vectorValue(embedding)

	return trend, nil
}

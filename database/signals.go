package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	loadSql "github.com/siherrmann/radar/sql"
)

// SignalsDBHandlerFunctions defines the interface for Signals database operations.
type SignalsDBHandlerFunctions interface {
	InsertSignal(ctx context.Context, signal *model.Signal) error
	SelectSignal(ctx context.Context, rid uuid.UUID) (*model.Signal, error)
	SelectSignals(ctx context.Context, limit int, offset int) ([]*model.Signal, error)
	SelectSignalsByDistance(ctx context.Context, embedding []float32, limit int) ([]*model.Signal, error)
	CountSignals(ctx context.Context) (int64, error)
}

// SignalsDBHandler handles signal-related database operations
type SignalsDBHandler struct {
	db        *helper.Database
	q         helper.Querier
	dimension int
}

// NewSignalsDBHandler creates a new signals database handler.
// It loads the signal-related SQL functions and creates the table with
// an embedding column of the given dimension.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSignalsDBHandler(db *helper.Database, dimension int, force bool) (*SignalsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", dimension))
	}

	signalsDbHandler := &SignalsDBHandler{
		db:        db,
		q:         db.Instance,
		dimension: dimension,
	}

	err := loadSql.LoadSignalsSql(signalsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load signals sql", err)
	}

	err = signalsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SignalsDBHandler", "dimension", dimension)

	return signalsDbHandler, nil
}

// CreateTable creates the 'signals' table in the database.
// If the table already exists, it does not create it again.
func (h *SignalsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_signals($1);`, h.dimension)
	if err != nil {
		return helper.NewError("init signals", err)
	}

	h.db.Logger.Info("Checked/created table signals")

	return nil
}

// WithTx returns a handler running its statements inside tx.
func (h *SignalsDBHandler) WithTx(tx *sql.Tx) *SignalsDBHandler {
	return &SignalsDBHandler{db: h.db, q: tx, dimension: h.dimension}
}

// InsertSignal inserts a signal and sets its ID, RID and CreatedAt.
func (h *SignalsDBHandler) InsertSignal(ctx context.Context, signal *model.Signal) error {
	if signal.HasVector() && len(signal.Embedding) != h.dimension {
		return helper.NewError("insert signal", fmt.Errorf("%w: got %d want %d", model.ErrDimensionMismatch, len(signal.Embedding), h.dimension))
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_signal($1, $2, $3, $4, $5, $6, $7)`,
		signal.Title,
		signal.URL,
		signal.Content,
		signal.RawText,
		string(signal.Source),
		signal.Date,
		vectorParam(signal.Embedding),
	)

	err := row.Scan(
		&signal.ID,
		&signal.RID,
		&signal.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSignal retrieves a signal by its RID
func (h *SignalsDBHandler) SelectSignal(ctx context.Context, rid uuid.UUID) (*model.Signal, error) {
	row := h.q.QueryRowContext(ctx, `SELECT * FROM select_signal($1)`, rid)

	signal, err := scanSignal(row.Scan, false)
	if err != nil {
		return nil, scanError(err)
	}

	return signal, nil
}

// SelectSignals lists signals, newest first.
func (h *SignalsDBHandler) SelectSignals(ctx context.Context, limit int, offset int) ([]*model.Signal, error) {
	rows, err := h.q.QueryContext(ctx, `SELECT * FROM select_signals($1, $2)`, limit, offset)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanSignalRows(rows, false)
}

// SelectSignalsByDistance returns at most limit signals carrying a vector,
// ordered by ascending L2 distance to embedding and then by insertion order.
func (h *SignalsDBHandler) SelectSignalsByDistance(ctx context.Context, embedding []float32, limit int) ([]*model.Signal, error) {
	if len(embedding) != h.dimension {
		return nil, helper.NewError("select signals by distance", fmt.Errorf("%w: got %d want %d", model.ErrDimensionMismatch, len(embedding), h.dimension))
	}

	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_signals_by_distance($1, $2)`,
		pgvector.NewVector(embedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanSignalRows(rows, true)
}

// CountSignals returns the number of stored signals.
func (h *SignalsDBHandler) CountSignals(ctx context.Context) (int64, error) {
	var count int64
	err := h.q.QueryRowContext(ctx, `SELECT count_signals()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanSignalRows(rows *sql.Rows, withDistance bool) ([]*model.Signal, error) {
	signals := []*model.Signal{}
	for rows.Next() {
		signal, err := scanSignal(rows.Scan, withDistance)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		signals = append(signals, signal)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return signals, nil
}

func scanSignal(scan func(dest ...any) error, withDistance bool) (*model.Signal, error) {
	signal := &model.Signal{}
	var source string
	var embedding *pgvector.Vector

	dest := []any{
		&signal.ID,
		&signal.RID,
		&signal.Title,
		&signal.URL,
		&signal.Content,
		&signal.RawText,
		&source,
		&signal.Date,
		&embedding,
		&signal.CreatedAt,
	}
	if withDistance {
		dest = append(dest, &signal.Distance)
	}

	err := scan(dest...)
	if err != nil {
		return nil, err
	}

	signal.Source = model.SignalSource(source)
	signal.Embedding = vectorValue(embedding)

	return signal, nil
}

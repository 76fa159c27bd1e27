package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/siherrmann/radar/helper"
)

const signalVectorIndex = "idx_signals_embedding"

// ChangeIndexType rebuilds the signal embedding index as "hnsw" or "ivfflat".
// Both use vector_l2_ops so the index agrees with retrieval ordering.
//
// Recognised params are "m" and "ef_construction" for hnsw (defaults 16, 64)
// and "lists" for ivfflat (default 100). Values may be int, int64 or float64.
func (h *SignalsDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	statement, err := vectorIndexStatement(indexType, params)
	if err != nil {
		return helper.NewError("change index type", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	err = h.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS `+signalVectorIndex); err != nil {
			return helper.NewError("drop index", err)
		}
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return helper.NewError("create index", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.db.Logger.Info("Rebuilt signal vector index", "type", indexType, "params", params)

	return nil
}

func vectorIndexStatement(indexType string, params map[string]interface{}) (string, error) {
	switch indexType {
	case "hnsw":
		m, err := indexParam(params, "m", 16)
		if err != nil {
			return "", err
		}
		ef, err := indexParam(params, "ef_construction", 64)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			`CREATE INDEX %s ON signals USING hnsw (embedding vector_l2_ops) WITH (m = %d, ef_construction = %d)`,
			signalVectorIndex, m, ef,
		), nil
	case "ivfflat":
		lists, err := indexParam(params, "lists", 100)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			`CREATE INDEX %s ON signals USING ivfflat (embedding vector_l2_ops) WITH (lists = %d)`,
			signalVectorIndex, lists,
		), nil
	default:
		return "", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType)
	}
}

func indexParam(params map[string]interface{}, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	var value int
	switch v := raw.(type) {
	case int:
		value = v
	case int64:
		value = int(v)
	case float64:
		value = int(v)
	default:
		return 0, fmt.Errorf("index parameter %s has type %T", key, raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("index parameter %s must be positive, got %d", key, value)
	}

	return value, nil
}

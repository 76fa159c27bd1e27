package database

import (
	"database/sql"
	"errors"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/radar/helper"
)

// vectorParam converts an embedding into a query parameter; nil becomes NULL.
func vectorParam(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// vectorValue converts a scanned nullable vector column.
func vectorValue(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

// scanError maps sql.ErrNoRows to helper.ErrNotFound.
func scanError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return helper.NewError("scan", helper.ErrNotFound)
	}
	return helper.NewError("scan", err)
}

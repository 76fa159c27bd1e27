package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/radar/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphStore(t *testing.T) {
	t.Run("Invalid call NewGraphStore with nil database", func(t *testing.T) {
		_, err := NewGraphStore(nil, testDimension, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestGraphStoreTransactions(t *testing.T) {
	_, store := initStore(t)
	ctx := context.Background()

	t.Run("Committed transaction is visible", func(t *testing.T) {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)

		signal, err := model.NewSignalFromText("committed", model.SignalSourceStdin)
		require.NoError(t, err)
		require.NoError(t, tx.InsertSignal(ctx, signal))

		entity := &model.Entity{Name: "Committed Co", Type: model.EntityTypeCompany}
		created, err := tx.InsertEntity(ctx, entity)
		require.NoError(t, err)
		require.True(t, created)

		require.NoError(t, tx.Commit())

		_, err = store.Signals.SelectSignal(ctx, signal.RID)
		assert.NoError(t, err)
		_, err = store.Entities.SelectEntityByName(ctx, "Committed Co")
		assert.NoError(t, err)
	})

	t.Run("Rolled back transaction leaves nothing", func(t *testing.T) {
		before, err := store.Stats(ctx)
		require.NoError(t, err)

		tx, err := store.Begin(ctx)
		require.NoError(t, err)

		signal, err := model.NewSignalFromText("rolled back", model.SignalSourceStdin)
		require.NoError(t, err)
		require.NoError(t, tx.InsertSignal(ctx, signal))

		a := &model.Entity{Name: "Gone A", Type: model.EntityTypeTech}
		b := &model.Entity{Name: "Gone B", Type: model.EntityTypeTech}
		_, err = tx.InsertEntity(ctx, a)
		require.NoError(t, err)
		_, err = tx.InsertEntity(ctx, b)
		require.NoError(t, err)
		require.NoError(t, tx.InsertConnection(ctx, &model.Connection{SourceID: a.ID, TargetID: b.ID, Type: model.ConnectionTypeSupports}))
		_, err = tx.InsertTrend(ctx, &model.Trend{Name: "Gone trend"})
		require.NoError(t, err)

		require.NoError(t, tx.Rollback())

		after, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Reads inside transaction see own writes", func(t *testing.T) {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.InsertEntity(ctx, &model.Entity{Name: "Pending", Type: model.EntityTypeMarket})
		require.NoError(t, err)

		found, err := tx.SelectEntityByName(ctx, "Pending")
		require.NoError(t, err)
		assert.Equal(t, model.EntityTypeMarket, found.Type)

		count, err := store.Entities.CountEntities(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Expected uncommitted entity to be invisible outside the transaction")
	})
}

func TestGraphStoreConcurrentNameInsert(t *testing.T) {
	_, store := initStore(t)
	ctx := context.Background()

	tx1, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx1.Rollback() }()
	tx2, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx2.Rollback() }()

	winner := &model.Entity{Name: "Acme", Type: model.EntityTypeCompany}
	created, err := tx1.InsertEntity(ctx, winner)
	require.NoError(t, err)
	require.True(t, created)

	type insertResult struct {
		created bool
		err     error
	}
	done := make(chan insertResult, 1)
	loser := &model.Entity{Name: "Acme", Type: model.EntityTypeTech}
	go func() {
		created, err := tx2.InsertEntity(ctx, loser)
		done <- insertResult{created, err}
	}()

	select {
	case <-done:
		t.Fatal("Expected second insert to wait for the first transaction")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, tx1.Commit())

	var second insertResult
	select {
	case second = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Expected second insert to finish after commit")
	}
	require.NoError(t, second.err)
	assert.False(t, second.created)

	existing, err := tx2.SelectEntityByName(ctx, "Acme")
	require.NoError(t, err, "Expected transaction to stay usable after the conflict")
	assert.Equal(t, winner.ID, existing.ID)
	assert.Equal(t, model.EntityTypeCompany, existing.Type)

	connection := &model.Connection{SourceID: existing.ID, TargetID: existing.ID, Type: model.ConnectionTypeCompetesWith}
	require.NoError(t, tx2.InsertConnection(ctx, connection))
	require.NoError(t, tx2.Commit())

	connections, err := store.Connections.SelectConnectionsFromEntity(ctx, winner.ID)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, connection.ID, connections[0].ID)

	count, err := store.Entities.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGraphStoreSnapshot(t *testing.T) {
	_, store := initStore(t)
	ctx := context.Background()

	a := &model.Entity{Name: "Snap A", Type: model.EntityTypeCompany}
	b := &model.Entity{Name: "Snap B", Type: model.EntityTypeCompany}
	for _, e := range []*model.Entity{a, b} {
		_, err := store.Entities.InsertEntity(ctx, e)
		require.NoError(t, err)
	}
	require.NoError(t, store.Connections.InsertConnection(ctx, &model.Connection{SourceID: a.ID, TargetID: b.ID, Type: model.ConnectionTypeCompetesWith}))
	_, err := store.Trends.InsertTrend(ctx, &model.Trend{Name: "Snap trend"})
	require.NoError(t, err)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Entities, 2)
	assert.Len(t, snapshot.Connections, 1)
	assert.Len(t, snapshot.Trends, 1)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.GraphStats{Signals: 0, Entities: 2, Connections: 1, Trends: 1}, stats)
}

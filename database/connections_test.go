package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/radar/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionsNewConnectionsDBHandler(t *testing.T) {
	t.Run("Invalid call NewConnectionsDBHandler with nil database", func(t *testing.T) {
		_, err := NewConnectionsDBHandler(nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestConnectionsInsertAndSelect(t *testing.T) {
	_, store := initStore(t)
	ctx := context.Background()

	acme := &model.Entity{Name: "Acme", Type: model.EntityTypeCompany}
	chips := &model.Entity{Name: "Chips", Type: model.EntityTypeTech}
	for _, e := range []*model.Entity{acme, chips} {
		_, err := store.Entities.InsertEntity(ctx, e)
		require.NoError(t, err)
	}
	signalID := uuid.New()

	t.Run("Insert connection", func(t *testing.T) {
		connection := &model.Connection{
			SourceID: acme.ID,
			TargetID: chips.ID,
			Type:     model.ConnectionTypeDrives,
			Metadata: model.NewConnectionMetadata("acme drives chips", signalID),
		}

		err := store.Connections.InsertConnection(ctx, connection)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, connection.ID)
	})

	t.Run("Insert self-loop", func(t *testing.T) {
		connection := &model.Connection{
			SourceID: acme.ID,
			TargetID: acme.ID,
			Type:     model.ConnectionTypeCompetesWith,
		}

		err := store.Connections.InsertConnection(ctx, connection)
		require.NoError(t, err)
	})

	t.Run("Insert connection to unknown entity fails", func(t *testing.T) {
		connection := &model.Connection{
			SourceID: acme.ID,
			TargetID: uuid.New(),
			Type:     model.ConnectionTypeMentions,
		}

		err := store.Connections.InsertConnection(ctx, connection)
		assert.Error(t, err)
	})

	t.Run("Select connections by direction", func(t *testing.T) {
		outgoing, err := store.Connections.SelectConnectionsFromEntity(ctx, acme.ID)
		require.NoError(t, err)
		assert.Len(t, outgoing, 2)

		incoming, err := store.Connections.SelectConnectionsToEntity(ctx, chips.ID)
		require.NoError(t, err)
		require.Len(t, incoming, 1)
		assert.Equal(t, model.ConnectionTypeDrives, incoming[0].Type)
		assert.Equal(t, "acme drives chips", incoming[0].Metadata["description"])
		assert.Equal(t, signalID.String(), incoming[0].Metadata["signal_id"])
	})

	t.Run("Select connections of entity counts self-loop once", func(t *testing.T) {
		hops, err := store.Connections.SelectConnectionsOfEntity(ctx, acme.ID)
		require.NoError(t, err)
		assert.Len(t, hops, 2)

		hops, err = store.Connections.SelectConnectionsOfEntity(ctx, chips.ID)
		require.NoError(t, err)
		require.Len(t, hops, 1)
		assert.False(t, hops[0].IsOutgoing)
		assert.Equal(t, acme.ID, hops[0].Neighbor())
	})

	t.Run("Select all and count", func(t *testing.T) {
		connections, err := store.Connections.SelectAllConnections(ctx)
		require.NoError(t, err)
		assert.Len(t, connections, 2)

		count, err := store.Connections.CountConnections(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

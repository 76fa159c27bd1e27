package graph

import (
	"context"
	"testing"

	"github.com/siherrmann/radar/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolve creates missing entity once", func(t *testing.T) {
		store := newMemoryStore()
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		resolver := NewResolver(nil)

		extracted := model.ExtractedEntity{Name: "Acme", Type: model.EntityTypeCompany, Description: "widgets"}
		id, created, err := resolver.Resolve(ctx, tx, extracted, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.True(t, created)

		again, created, err := resolver.Resolve(ctx, tx, extracted, nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, id, again)
		assert.Equal(t, 1, resolver.Len())
	})

	t.Run("Resolve reuses stored entity without modification", func(t *testing.T) {
		store := newMemoryStore()
		existing := store.commitEntity("Acme")
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		resolver := NewResolver(nil)

		id, created, err := resolver.Resolve(ctx, tx, model.ExtractedEntity{Name: "Acme", Type: model.EntityTypeTech, Description: "new"}, []float32{9, 9, 9})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, id)
		assert.Equal(t, "first", existing.Description())
		assert.Nil(t, existing.Embedding)
	})

	t.Run("Names are matched exactly", func(t *testing.T) {
		store := newMemoryStore()
		store.commitEntity("Acme")
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		resolver := NewResolver(nil)

		_, created, err := resolver.Resolve(ctx, tx, model.ExtractedEntity{Name: "ACME", Type: model.EntityTypeCompany}, nil)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("Plan returns missing names once in order", func(t *testing.T) {
		store := newMemoryStore()
		known := store.commitEntity("Known")
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		resolver := NewResolver(nil)

		missing, reused, err := resolver.Plan(ctx, tx, []model.ExtractedEntity{
			{Name: "B", Type: model.EntityTypeTech},
			{Name: "Known", Type: model.EntityTypeTech},
			{Name: "A", Type: model.EntityTypeTech},
			{Name: "B", Type: model.EntityTypePerson},
			{Name: "Known", Type: model.EntityTypeTech},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, reused)
		require.Len(t, missing, 2)
		assert.Equal(t, "B", missing[0].Name)
		assert.Equal(t, model.EntityTypeTech, missing[0].Type)
		assert.Equal(t, "A", missing[1].Name)

		id, ok := resolver.Lookup("Known")
		assert.True(t, ok)
		assert.Equal(t, known.ID, id)
		_, ok = resolver.Lookup("B")
		assert.False(t, ok, "Expected planned names to resolve only after creation")
	})

	t.Run("Create falls back to lookup when name was taken", func(t *testing.T) {
		store := newMemoryStore()
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		resolver := NewResolver(nil)

		var winnerID = store.commitEntity("Acme").ID
		id, created, err := resolver.Create(ctx, tx, model.ExtractedEntity{Name: "Acme", Type: model.EntityTypeCompany}, nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winnerID, id)
	})

	t.Run("Persistence failure aborts", func(t *testing.T) {
		store := newMemoryStore()
		store.failOn = "entity"
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		resolver := NewResolver(nil)

		_, _, err = resolver.Resolve(ctx, tx, model.ExtractedEntity{Name: "Acme", Type: model.EntityTypeCompany}, nil)
		assert.Error(t, err)
		assert.Equal(t, 0, resolver.Len())
	})
}

package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	t.Run("Known types in any case", func(t *testing.T) {
		typ, ok := ParseEntityType(" company ")
		assert.True(t, ok)
		assert.Equal(t, EntityTypeCompany, typ)

		typ, ok = ParseEntityType("Tech")
		assert.True(t, ok)
		assert.Equal(t, EntityTypeTech, typ)
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, ok := ParseEntityType("PLANET")
		assert.False(t, ok)
	})
}

func TestParseConnectionType(t *testing.T) {
	cases := map[string]ConnectionType{
		"SUPPORTS":      ConnectionTypeSupports,
		"drives":        ConnectionTypeDrives,
		"COMPETES":      ConnectionTypeCompetesWith,
		"competes with": ConnectionTypeCompetesWith,
		"COMPETES_WITH": ConnectionTypeCompetesWith,
		"part-of":       ConnectionTypePartOf,
		"Mentions":      ConnectionTypeMentions,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseConnectionType(in)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	t.Run("Unknown type", func(t *testing.T) {
		_, ok := ParseConnectionType("LOVES")
		assert.False(t, ok)
	})
}

func TestExtractionResultNormalize(t *testing.T) {
	t.Run("Nil result normalizes to empty", func(t *testing.T) {
		var r *ExtractionResult
		out, dropped := r.Normalize()

		require.NotNil(t, out)
		assert.True(t, out.IsEmpty())
		assert.Zero(t, dropped)
	})

	t.Run("Trims and canonicalizes", func(t *testing.T) {
		r := &ExtractionResult{
			Entities: []ExtractedEntity{
				{Name: "  Acme ", Type: "company", Description: " maker "},
			},
			Connections: []ExtractedConnection{
				{Source: "Acme", Target: "Acme", Type: "COMPETES", Description: "self"},
			},
			Trends: []ExtractedTrend{
				{Name: "Edge AI", Description: "on device"},
			},
		}

		out, dropped := r.Normalize()

		assert.Zero(t, dropped)
		require.Len(t, out.Entities, 1)
		assert.Equal(t, "Acme", out.Entities[0].Name)
		assert.Equal(t, EntityTypeCompany, out.Entities[0].Type)
		assert.Equal(t, "maker", out.Entities[0].Description)
		require.Len(t, out.Connections, 1)
		assert.Equal(t, ConnectionTypeCompetesWith, out.Connections[0].Type)
		require.Len(t, out.Trends, 1)
		assert.Equal(t, DefaultVelocity, out.Trends[0].Velocity)
	})

	t.Run("Drops invalid items", func(t *testing.T) {
		r := &ExtractionResult{
			Entities: []ExtractedEntity{
				{Name: "", Type: EntityTypeTech},
				{Name: "Pluto", Type: "PLANET"},
				{Name: "Acme", Type: EntityTypeCompany},
			},
			Connections: []ExtractedConnection{
				{Source: "Acme", Target: "", Type: ConnectionTypeDrives},
				{Source: "Acme", Target: "Acme", Type: "LOVES"},
			},
			Trends: []ExtractedTrend{{Name: " "}},
		}

		out, dropped := r.Normalize()

		assert.Equal(t, 5, dropped)
		assert.Len(t, out.Entities, 1)
		assert.Empty(t, out.Connections)
		assert.Empty(t, out.Trends)
	})

	t.Run("Input is not modified", func(t *testing.T) {
		r := &ExtractionResult{Entities: []ExtractedEntity{{Name: " Acme ", Type: "company"}}}
		_, _ = r.Normalize()
		assert.Equal(t, " Acme ", r.Entities[0].Name)
	})
}

func TestConnectionHelpers(t *testing.T) {
	signalID := uuid.New()
	metadata := NewConnectionMetadata("acme drives ai", signalID)
	assert.Equal(t, "acme drives ai", metadata["description"])
	assert.Equal(t, signalID.String(), metadata["signal_id"])

	source, target := uuid.New(), uuid.New()
	conn := &Connection{SourceID: source, TargetID: target}
	assert.Equal(t, target, ConnectionHop{Connection: conn, IsOutgoing: true}.Neighbor())
	assert.Equal(t, source, ConnectionHop{Connection: conn, IsOutgoing: false}.Neighbor())
}

func TestEntityDescription(t *testing.T) {
	assert.Equal(t, "", (&Entity{}).Description())
	assert.Equal(t, "maker", (&Entity{Details: Metadata{"description": "maker"}}).Description())
}

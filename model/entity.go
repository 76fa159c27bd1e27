package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType classifies an entity.
type EntityType string

const (
	EntityTypeCompany EntityType = "COMPANY"
	EntityTypeTech    EntityType = "TECH"
	EntityTypePerson  EntityType = "PERSON"
	EntityTypeMarket  EntityType = "MARKET"
)

// EntityTypes lists every valid entity type.
var EntityTypes = []EntityType{EntityTypeCompany, EntityTypeTech, EntityTypePerson, EntityTypeMarket}

// ParseEntityType normalizes s and reports whether it names a known type.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EntityTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Entity is a named node of the graph. Name is the identity key and is matched
// exactly; details and vector are fixed by the first ingestion that created it.
type Entity struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Type      EntityType `json:"type"`
	Details   Metadata   `json:"details,omitempty"`
	Embedding []float32  `json:"embedding,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Description returns the "description" detail if set.
func (e *Entity) Description() string {
	return e.Details.String("description")
}

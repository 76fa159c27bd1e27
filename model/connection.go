package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectionType represents the type of relationship between two entities
type ConnectionType string

const (
	ConnectionTypeSupports     ConnectionType = "SUPPORTS"
	ConnectionTypeDrives       ConnectionType = "DRIVES"
	ConnectionTypeCompetesWith ConnectionType = "COMPETES_WITH"
	ConnectionTypePartOf       ConnectionType = "PART_OF"
	ConnectionTypeMentions     ConnectionType = "MENTIONS"
)

// ConnectionTypes lists every valid connection type.
var ConnectionTypes = []ConnectionType{
	ConnectionTypeSupports,
	ConnectionTypeDrives,
	ConnectionTypeCompetesWith,
	ConnectionTypePartOf,
	ConnectionTypeMentions,
}

// ParseConnectionType normalizes s ("competes with", "COMPETES", "part-of", ...)
// and reports whether it names a known type.
func ParseConnectionType(s string) (ConnectionType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "COMPETES" {
		return ConnectionTypeCompetesWith, true
	}
	for _, known := range ConnectionTypes {
		if ConnectionType(normalized) == known {
			return known, true
		}
	}
	return "", false
}

// Connection is a directed, typed edge between two persisted entities.
// Self-loops are allowed.
type Connection struct {
	ID        uuid.UUID      `json:"id"`
	SourceID  uuid.UUID      `json:"source_id"`
	TargetID  uuid.UUID      `json:"target_id"`
	Type      ConnectionType `json:"type"`
	Metadata  Metadata       `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewConnectionMetadata builds the metadata stored with each connection.
func NewConnectionMetadata(description string, signalID uuid.UUID) Metadata {
	return Metadata{
		"description": description,
		"signal_id":   signalID.String(),
	}
}

// ConnectionHop is a connection seen from one of its endpoints.
type ConnectionHop struct {
	Connection *Connection `json:"connection"`
	IsOutgoing bool        `json:"is_outgoing"`
}

// Neighbor returns the endpoint that is not the current node.
func (h ConnectionHop) Neighbor() uuid.UUID {
	if h.IsOutgoing {
		return h.Connection.TargetID
	}
	return h.Connection.SourceID
}

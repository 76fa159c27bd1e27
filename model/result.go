package model

import "github.com/google/uuid"

// MergeResult summarizes one committed ingestion.
type MergeResult struct {
	Signal             *Signal `json:"signal"`
	EntitiesCreated    int     `json:"entities_created"`
	EntitiesReused     int     `json:"entities_reused"`
	TrendsCreated      int     `json:"trends_created"`
	TrendsReused       int     `json:"trends_reused"`
	ConnectionsCreated int     `json:"connections_created"`
	DroppedConnections int     `json:"dropped_connections"`
}

// Answer is the response to a question together with the signals it is based on.
type Answer struct {
	Question string    `json:"question"`
	Text     string    `json:"text"`
	Sources  []*Signal `json:"sources"`
}

// NoContextAnswer is returned when retrieval found nothing to answer from.
const NoContextAnswer = "No relevant signals found to answer this question."

// GraphStats counts the stored rows per kind.
type GraphStats struct {
	Signals     int64 `json:"signals"`
	Entities    int64 `json:"entities"`
	Connections int64 `json:"connections"`
	Trends      int64 `json:"trends"`
}

// GraphSnapshot is the whole entity graph, used for export.
type GraphSnapshot struct {
	Entities    []*Entity     `json:"entities"`
	Connections []*Connection `json:"connections"`
	Trends      []*Trend      `json:"trends"`
}

// TraversalNode represents an entity reached by a graph traversal
type TraversalNode struct {
	EntityID uuid.UUID   `json:"entity_id"`
	Depth    int         `json:"depth"`
	Path     []uuid.UUID `json:"path"`
}

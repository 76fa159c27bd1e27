package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultVelocity is stored when the extraction gives no velocity.
const DefaultVelocity = "emerging"

// Trend is a named, slowly varying theme across signals.
type Trend struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Velocity    string    `json:"velocity"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

package model

import "strings"

// ExtractedEntity is an entity as proposed by the extraction step.
type ExtractedEntity struct {
	Name        string     `json:"name" jsonschema:"description=Exact name of the company or technology or person or market"`
	Type        EntityType `json:"type" jsonschema:"enum=COMPANY,enum=TECH,enum=PERSON,enum=MARKET"`
	Description string     `json:"description" jsonschema:"description=One sentence describing the entity"`
}

// ExtractedConnection references its endpoints by entity name.
type ExtractedConnection struct {
	Source      string         `json:"source" jsonschema:"description=Name of the source entity"`
	Target      string         `json:"target" jsonschema:"description=Name of the target entity"`
	Type        ConnectionType `json:"type" jsonschema:"enum=SUPPORTS,enum=DRIVES,enum=COMPETES_WITH,enum=PART_OF,enum=MENTIONS"`
	Description string         `json:"description" jsonschema:"description=Why the two entities are connected"`
}

// ExtractedTrend is a trend as proposed by the extraction step.
type ExtractedTrend struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Velocity    string `json:"velocity" jsonschema:"description=How fast the trend moves such as emerging"`
}

// ExtractionResult is the structured output of one extraction call. It is
// never persisted as such.
type ExtractionResult struct {
	Entities    []ExtractedEntity     `json:"entities"`
	Connections []ExtractedConnection `json:"connections"`
	Trends      []ExtractedTrend      `json:"trends"`
}

// IsEmpty reports whether the result carries nothing to merge.
func (r *ExtractionResult) IsEmpty() bool {
	return r == nil || (len(r.Entities) == 0 && len(r.Connections) == 0 && len(r.Trends) == 0)
}

// Normalize returns a copy with trimmed names, canonical enum values and
// defaults applied. Items with an empty name or an unknown type are removed;
// the number of removed items is returned.
func (r *ExtractionResult) Normalize() (*ExtractionResult, int) {
	out := &ExtractionResult{
		Entities:    []ExtractedEntity{},
		Connections: []ExtractedConnection{},
		Trends:      []ExtractedTrend{},
	}
	if r == nil {
		return out, 0
	}

	dropped := 0
	for _, e := range r.Entities {
		name := strings.TrimSpace(e.Name)
		t, ok := ParseEntityType(string(e.Type))
		if name == "" || !ok {
			dropped++
			continue
		}
		out.Entities = append(out.Entities, ExtractedEntity{
			Name:        name,
			Type:        t,
			Description: strings.TrimSpace(e.Description),
		})
	}

	for _, c := range r.Connections {
		source := strings.TrimSpace(c.Source)
		target := strings.TrimSpace(c.Target)
		t, ok := ParseConnectionType(string(c.Type))
		if source == "" || target == "" || !ok {
			dropped++
			continue
		}
		out.Connections = append(out.Connections, ExtractedConnection{
			Source:      source,
			Target:      target,
			Type:        t,
			Description: strings.TrimSpace(c.Description),
		})
	}

	for _, tr := range r.Trends {
		name := strings.TrimSpace(tr.Name)
		if name == "" {
			dropped++
			continue
		}
		velocity := strings.TrimSpace(tr.Velocity)
		if velocity == "" {
			velocity = DefaultVelocity
		}
		out.Trends = append(out.Trends, ExtractedTrend{
			Name:        name,
			Description: strings.TrimSpace(tr.Description),
			Velocity:    velocity,
		})
	}

	return out, dropped
}

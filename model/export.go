package model

// GraphNode is an entity in the force-graph export format.
type GraphNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Val         int        `json:"val"`
	Color       string     `json:"color"`
	Description string     `json:"desc"`
}

// GraphLink is a connection in the force-graph export format.
type GraphLink struct {
	Source      string         `json:"source"`
	Target      string         `json:"target"`
	Name        ConnectionType `json:"name"`
	Description string         `json:"desc"`
}

// GraphExport is the node/link document consumed by graph visualisers.
type GraphExport struct {
	Nodes  []GraphNode `json:"nodes"`
	Links  []GraphLink `json:"links"`
	Trends []*Trend    `json:"trends,omitempty"`
}

var entityColors = map[EntityType]string{
	EntityTypeCompany: "#ff7f0e",
	EntityTypeTech:    "#2ca02c",
	EntityTypePerson:  "#d62728",
	EntityTypeMarket:  "#9467bd",
}

const defaultEntityColor = "#1f77b4"

// NewGraphExport converts a snapshot into the visualiser format.
// Vectors are left out.
func NewGraphExport(snapshot *GraphSnapshot) *GraphExport {
	export := &GraphExport{
		Nodes: []GraphNode{},
		Links: []GraphLink{},
	}
	if snapshot == nil {
		return export
	}

	for _, e := range snapshot.Entities {
		color, ok := entityColors[e.Type]
		if !ok {
			color = defaultEntityColor
		}
		export.Nodes = append(export.Nodes, GraphNode{
			ID:          e.ID.String(),
			Name:        e.Name,
			Type:        e.Type,
			Val:         1,
			Color:       color,
			Description: e.Description(),
		})
	}

	for _, c := range snapshot.Connections {
		export.Links = append(export.Links, GraphLink{
			Source:      c.SourceID.String(),
			Target:      c.TargetID.String(),
			Name:        c.Type,
			Description: c.Metadata.String("description"),
		})
	}

	for _, t := range snapshot.Trends {
		trend := *t
		trend.Embedding = nil
		export.Trends = append(export.Trends, &trend)
	}

	return export
}

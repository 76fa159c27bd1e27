package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/radar/model"
)

// ConnectionReader reads the connections touching an entity.
type ConnectionReader interface {
	SelectConnectionsOfEntity(ctx context.Context, entityID uuid.UUID) ([]model.ConnectionHop, error)
}

// BFS performs breadth-first search over connections from a source entity.
// Connections are followed in both directions. An empty types slice follows every type.
func BFS(ctx context.Context, db ConnectionReader, sourceID uuid.UUID, maxHops int, types []model.ConnectionType) ([]*model.TraversalNode, error) {
	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []*model.TraversalNode{{
		EntityID: sourceID,
		Depth:    0,
		Path:     []uuid.UUID{sourceID},
	}}

	var results []*model.TraversalNode
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		results = append(results, current)

		if current.Depth >= maxHops {
			continue
		}

		hops, err := db.SelectConnectionsOfEntity(ctx, current.EntityID)
		if err != nil {
			return nil, err
		}

		for _, hop := range hops {
			if !followType(hop.Connection.Type, types) {
				continue
			}
			next := hop.Neighbor()
			if visited[next] {
				continue
			}
			visited[next] = true

			queue = append(queue, &model.TraversalNode{
				EntityID: next,
				Depth:    current.Depth + 1,
				Path:     extendPath(current.Path, next),
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search over connections from a source entity.
func DFS(ctx context.Context, db ConnectionReader, sourceID uuid.UUID, maxHops int, types []model.ConnectionType) ([]*model.TraversalNode, error) {
	visited := map[uuid.UUID]bool{}
	var results []*model.TraversalNode

	err := dfsRecursive(ctx, db, sourceID, 0, maxHops, []uuid.UUID{sourceID}, types, visited, &results)
	if err != nil {
		return nil, err
	}

	return results, nil
}

func dfsRecursive(
	ctx context.Context,
	db ConnectionReader,
	current uuid.UUID,
	depth int,
	maxHops int,
	path []uuid.UUID,
	types []model.ConnectionType,
	visited map[uuid.UUID]bool,
	results *[]*model.TraversalNode,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	visited[current] = true
	*results = append(*results, &model.TraversalNode{
		EntityID: current,
		Depth:    depth,
		Path:     path,
	})

	if depth >= maxHops {
		return nil
	}

	hops, err := db.SelectConnectionsOfEntity(ctx, current)
	if err != nil {
		return err
	}

	for _, hop := range hops {
		if !followType(hop.Connection.Type, types) {
			continue
		}
		next := hop.Neighbor()
		if visited[next] {
			continue
		}

		err := dfsRecursive(ctx, db, next, depth+1, maxHops, extendPath(path, next), types, visited, results)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetNeighbors returns the ids of the entities one connection away.
func GetNeighbors(ctx context.Context, db ConnectionReader, entityID uuid.UUID, types []model.ConnectionType) ([]uuid.UUID, error) {
	results, err := BFS(ctx, db, entityID, 1, types)
	if err != nil {
		return nil, err
	}

	// first result is the source itself
	neighbors := make([]uuid.UUID, 0, len(results)-1)
	for _, r := range results[1:] {
		neighbors = append(neighbors, r.EntityID)
	}

	return neighbors, nil
}

func followType(t model.ConnectionType, types []model.ConnectionType) bool {
	if len(types) == 0 {
		return true
	}
	for _, allowed := range types {
		if t == allowed {
			return true
		}
	}
	return false
}

func extendPath(path []uuid.UUID, next uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(path), len(path)+1)
	copy(out, path)
	return append(out, next)
}

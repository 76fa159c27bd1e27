package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/radar/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockConnectionReader is an in-memory ConnectionReader for testing
type MockConnectionReader struct {
	connections []*model.Connection
	err         error
}

func (m *MockConnectionReader) connect(source, target uuid.UUID, t model.ConnectionType) {
	m.connections = append(m.connections, &model.Connection{ID: uuid.New(), SourceID: source, TargetID: target, Type: t})
}

func (m *MockConnectionReader) SelectConnectionsOfEntity(ctx context.Context, entityID uuid.UUID) ([]model.ConnectionHop, error) {
	if m.err != nil {
		return nil, m.err
	}
	hops := []model.ConnectionHop{}
	for _, c := range m.connections {
		if c.SourceID == entityID {
			hops = append(hops, model.ConnectionHop{Connection: c, IsOutgoing: true})
		} else if c.TargetID == entityID {
			hops = append(hops, model.ConnectionHop{Connection: c, IsOutgoing: false})
		}
	}
	return hops, nil
}

func ids(nodes []*model.TraversalNode) []uuid.UUID {
	out := []uuid.UUID{}
	for _, n := range nodes {
		out = append(out, n.EntityID)
	}
	return out
}

func TestBFS(t *testing.T) {
	// A -> B -> C, A -> D, E -> A
	idA, idB, idC, idD, idE := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mockDB := &MockConnectionReader{}
	mockDB.connect(idA, idB, model.ConnectionTypeDrives)
	mockDB.connect(idA, idD, model.ConnectionTypeSupports)
	mockDB.connect(idB, idC, model.ConnectionTypeDrives)
	mockDB.connect(idE, idA, model.ConnectionTypeMentions)
	ctx := context.Background()

	t.Run("BFS from source with max hops 1", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, idA, 1, nil)
		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 4, "Expected source plus three neighbours")
		assert.Equal(t, idA, results[0].EntityID, "Expected first result to be source")
		assert.Equal(t, 0, results[0].Depth, "Expected source depth to be 0")
		assert.ElementsMatch(t, []uuid.UUID{idA, idB, idD, idE}, ids(results))
	})

	t.Run("BFS from source with max hops 2", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, idA, 2, nil)
		assert.NoError(t, err)
		require.Len(t, results, 5)
		last := results[4]
		assert.Equal(t, idC, last.EntityID)
		assert.Equal(t, 2, last.Depth)
		assert.Equal(t, []uuid.UUID{idA, idB, idC}, last.Path)
	})

	t.Run("BFS follows incoming connections", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, idC, 1, nil)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{idC, idB}, ids(results))
	})

	t.Run("BFS with connection type filter", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, idA, 2, []model.ConnectionType{model.ConnectionTypeDrives})
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{idA, idB, idC}, ids(results))
	})

	t.Run("BFS with max hops 0", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, idA, 0, nil)
		assert.NoError(t, err)
		require.Len(t, results, 1, "Expected only source node for max hops 0")
		assert.Equal(t, idA, results[0].EntityID)
	})

	t.Run("BFS from isolated entity", func(t *testing.T) {
		isolated := uuid.New()
		results, err := BFS(ctx, mockDB, isolated, 2, nil)
		assert.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, isolated, results[0].EntityID)
	})

	t.Run("BFS with self-loop visits source once", func(t *testing.T) {
		loopDB := &MockConnectionReader{}
		self := uuid.New()
		loopDB.connect(self, self, model.ConnectionTypeCompetesWith)

		results, err := BFS(ctx, loopDB, self, 3, nil)
		assert.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("BFS returns reader error", func(t *testing.T) {
		_, err := BFS(ctx, &MockConnectionReader{err: assert.AnError}, idA, 1, nil)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("BFS with cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := BFS(cancelled, mockDB, idA, 1, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDFS(t *testing.T) {
	// A -> B -> C, A -> D
	idA, idB, idC, idD := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mockDB := &MockConnectionReader{}
	mockDB.connect(idA, idB, model.ConnectionTypeDrives)
	mockDB.connect(idA, idD, model.ConnectionTypeDrives)
	mockDB.connect(idB, idC, model.ConnectionTypeDrives)
	ctx := context.Background()

	t.Run("DFS visits deep branch first", func(t *testing.T) {
		results, err := DFS(ctx, mockDB, idA, 2, nil)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{idA, idB, idC, idD}, ids(results))
		assert.Equal(t, 2, results[2].Depth)
	})

	t.Run("DFS respects max hops", func(t *testing.T) {
		results, err := DFS(ctx, mockDB, idA, 1, nil)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{idA, idB, idD}, ids(results))
	})

	t.Run("DFS returns reader error", func(t *testing.T) {
		_, err := DFS(ctx, &MockConnectionReader{err: assert.AnError}, idA, 1, nil)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestGetNeighbors(t *testing.T) {
	idA, idB, idC := uuid.New(), uuid.New(), uuid.New()
	mockDB := &MockConnectionReader{}
	mockDB.connect(idA, idB, model.ConnectionTypePartOf)
	mockDB.connect(idC, idA, model.ConnectionTypeMentions)

	neighbors, err := GetNeighbors(context.Background(), mockDB, idA, nil)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{idB, idC}, neighbors)
}

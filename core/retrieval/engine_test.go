package retrieval

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/siherrmann/radar/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSignalSearcher ranks in-memory signals like the database does
type MockSignalSearcher struct {
	signals []*model.Signal
	calls   int
	err     error
	cancel  context.CancelFunc
}

func (m *MockSignalSearcher) add(title string, embedding []float32) *model.Signal {
	s := &model.Signal{ID: int64(len(m.signals) + 1), Title: title, Embedding: embedding}
	m.signals = append(m.signals, s)
	return s
}

func (m *MockSignalSearcher) SelectSignalsByDistance(ctx context.Context, embedding []float32, limit int) ([]*model.Signal, error) {
	m.calls++
	if m.cancel != nil {
		m.cancel()
	}
	if m.err != nil {
		return nil, m.err
	}

	ranked := []*model.Signal{}
	for _, s := range m.signals {
		if !s.HasVector() {
			continue
		}
		d, err := model.SquaredL2(s.Embedding, embedding)
		if err != nil {
			return nil, err
		}
		copied := *s
		copied.Distance = math.Sqrt(d)
		ranked = append(ranked, &copied)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func TestRetrieve(t *testing.T) {
	space := model.NewVectorSpace(3)
	ctx := context.Background()
	query := []float32{0, 0, 0}

	t.Run("Returns the k nearest in ascending distance", func(t *testing.T) {
		searcher := &MockSignalSearcher{}
		searcher.add("far", []float32{0.9, 0, 0})
		searcher.add("near", []float32{0.1, 0, 0})
		searcher.add("middle", []float32{0, 0.5, 0})
		engine := NewEngine(searcher, space, nil)

		results, err := engine.Retrieve(ctx, query, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "near", results[0].Title)
		assert.Equal(t, "middle", results[1].Title)
		assert.InDelta(t, 0.1, results[0].Distance, 1e-6)
		assert.InDelta(t, 0.5, results[1].Distance, 1e-6)
	})

	t.Run("Never returns signals without vector", func(t *testing.T) {
		searcher := &MockSignalSearcher{}
		searcher.add("no vector", nil)
		searcher.add("vector", []float32{1, 1, 1})
		engine := NewEngine(searcher, space, nil)

		results, err := engine.Retrieve(ctx, query, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "vector", results[0].Title)
	})

	t.Run("Ties keep insertion order", func(t *testing.T) {
		searcher := &MockSignalSearcher{}
		searcher.add("first", []float32{1, 0, 0})
		searcher.add("second", []float32{0, 1, 0})
		searcher.add("third", []float32{0, 0, 1})
		engine := NewEngine(searcher, space, nil)

		results, err := engine.Retrieve(ctx, query, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, []string{results[0].Title, results[1].Title, results[2].Title})
	})

	t.Run("Result is sorted even if the searcher is not", func(t *testing.T) {
		searcher := &unsortedSearcher{signals: []*model.Signal{
			{Title: "b", Embedding: []float32{1, 1, 1}, Distance: 0.7},
			{Title: "a", Embedding: []float32{1, 1, 1}, Distance: 0.2},
			{Title: "c", Embedding: []float32{1, 1, 1}, Distance: 0.9},
		}}
		engine := NewEngine(searcher, space, nil)

		results, err := engine.Retrieve(ctx, query, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Title)
		assert.Equal(t, "b", results[1].Title)
	})

	t.Run("No stored vectors returns empty result", func(t *testing.T) {
		engine := NewEngine(&MockSignalSearcher{}, space, nil)

		results, err := engine.Retrieve(ctx, query, 5)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("Non-positive k returns empty result without query", func(t *testing.T) {
		searcher := &MockSignalSearcher{}
		searcher.add("any", []float32{1, 1, 1})
		engine := NewEngine(searcher, space, nil)

		for _, k := range []int{0, -1} {
			results, err := engine.Retrieve(ctx, query, k)
			require.NoError(t, err)
			assert.Empty(t, results)
		}
		assert.Equal(t, 0, searcher.calls)
	})

	t.Run("Query with wrong dimension fails", func(t *testing.T) {
		searcher := &MockSignalSearcher{}
		engine := NewEngine(searcher, space, nil)

		_, err := engine.Retrieve(ctx, []float32{1, 2}, 2)
		assert.ErrorIs(t, err, model.ErrDimensionMismatch)
		assert.Equal(t, 0, searcher.calls)
	})

	t.Run("Searcher error is returned", func(t *testing.T) {
		engine := NewEngine(&MockSignalSearcher{err: assert.AnError}, space, nil)

		_, err := engine.Retrieve(ctx, query, 2)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Cancelled context returns no result", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		engine := NewEngine(&MockSignalSearcher{}, space, nil)

		results, err := engine.Retrieve(cancelled, query, 2)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, results)
	})

	t.Run("Cancellation during search returns no partial ranking", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		searcher := &MockSignalSearcher{cancel: cancel}
		searcher.add("any", []float32{1, 1, 1})
		engine := NewEngine(searcher, space, nil)

		results, err := engine.Retrieve(cancelled, query, 2)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, results)
	})
}

type unsortedSearcher struct {
	signals []*model.Signal
}

func (u *unsortedSearcher) SelectSignalsByDistance(ctx context.Context, embedding []float32, limit int) ([]*model.Signal, error) {
	return u.signals, nil
}

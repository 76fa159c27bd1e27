package graph

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// memoryStore is an in-memory Store. Writes of a transaction become
// visible to others only on Commit.
type memoryStore struct {
	mu          sync.Mutex
	signals     []*model.Signal
	entities    map[string]*model.Entity
	trends      map[string]*model.Trend
	connections []*model.Connection
	nextID      int64

	failOn             string
	beforeInsertEntity func(name string)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entities: map[string]*model.Entity{},
		trends:   map[string]*model.Trend{},
	}
}

func (s *memoryStore) Begin(ctx context.Context) (Tx, error) {
	if s.failOn == "begin" {
		return nil, fmt.Errorf("connection refused")
	}
	return &memoryTx{
		store:    s,
		entities: map[string]*model.Entity{},
		trends:   map[string]*model.Trend{},
	}, nil
}

// commitEntity stores an entity as if another ingestion committed it.
func (s *memoryStore) commitEntity(name string) *model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &model.Entity{ID: uuid.New(), Name: name, Type: model.EntityTypeCompany, Details: model.Metadata{"description": "first"}, CreatedAt: time.Now()}
	s.entities[name] = e
	return e
}

type memoryTx struct {
	store       *memoryStore
	signals     []*model.Signal
	entities    map[string]*model.Entity
	trends      map[string]*model.Trend
	connections []*model.Connection
	done        bool
}

func (tx *memoryTx) fail(op string) error {
	if tx.store.failOn == op {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (tx *memoryTx) InsertSignal(ctx context.Context, signal *model.Signal) error {
	if err := tx.fail("signal"); err != nil {
		return err
	}
	tx.store.mu.Lock()
	tx.store.nextID++
	signal.ID = tx.store.nextID
	tx.store.mu.Unlock()
	signal.RID = uuid.New()
	signal.CreatedAt = time.Now()
	tx.signals = append(tx.signals, signal)
	return nil
}

func (tx *memoryTx) InsertEntity(ctx context.Context, entity *model.Entity) (bool, error) {
	if err := tx.fail("entity"); err != nil {
		return false, err
	}
	if tx.store.beforeInsertEntity != nil {
		tx.store.beforeInsertEntity(entity.Name)
	}
	if _, err := tx.SelectEntityByName(ctx, entity.Name); err == nil {
		return false, nil
	}
	entity.ID = uuid.New()
	entity.CreatedAt = time.Now()
	tx.entities[entity.Name] = entity
	return true, nil
}

func (tx *memoryTx) SelectEntityByName(ctx context.Context, name string) (*model.Entity, error) {
	if e, ok := tx.entities[name]; ok {
		return e, nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if e, ok := tx.store.entities[name]; ok {
		return e, nil
	}
	return nil, helper.NewError("scan", helper.ErrNotFound)
}

func (tx *memoryTx) InsertTrend(ctx context.Context, trend *model.Trend) (bool, error) {
	if err := tx.fail("trend"); err != nil {
		return false, err
	}
	if _, err := tx.SelectTrendByName(ctx, trend.Name); err == nil {
		return false, nil
	}
	trend.ID = uuid.New()
	if trend.Velocity == "" {
		trend.Velocity = model.DefaultVelocity
	}
	tx.trends[trend.Name] = trend
	return true, nil
}

func (tx *memoryTx) SelectTrendByName(ctx context.Context, name string) (*model.Trend, error) {
	if t, ok := tx.trends[name]; ok {
		return t, nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if t, ok := tx.store.trends[name]; ok {
		return t, nil
	}
	return nil, helper.NewError("scan", helper.ErrNotFound)
}

func (tx *memoryTx) InsertConnection(ctx context.Context, connection *model.Connection) error {
	if err := tx.fail("connection"); err != nil {
		return err
	}
	connection.ID = uuid.New()
	tx.connections = append(tx.connections, connection)
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	if err := tx.fail("commit"); err != nil {
		return err
	}
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.signals = append(tx.store.signals, tx.signals...)
	for name, e := range tx.entities {
		tx.store.entities[name] = e
	}
	for name, t := range tx.trends {
		tx.store.trends[name] = t
	}
	tx.store.connections = append(tx.store.connections, tx.connections...)
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	return nil
}

// fakeEmbedder returns {position, len(text), 1} for every text.
type fakeEmbedder struct {
	calls int
	texts [][]string
	err   error
	short bool
}

func (f *fakeEmbedder) EmbedMany(ctx context.Context, items []string) ([][]float32, error) {
	f.calls++
	f.texts = append(f.texts, items)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(items))
	for i, item := range items {
		vectors[i] = []float32{float32(i), float32(len(item)), 1}
	}
	if f.short {
		return vectors[:len(vectors)-1], nil
	}
	return vectors, nil
}

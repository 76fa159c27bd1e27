package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// Resolver maps entity names to persisted entity ids for one ingestion.
// Names are matched exactly. An existing entity is reused as is, a missing
// one is created with the extracted type, description and vector.
type Resolver struct {
	ids    map[string]uuid.UUID
	logger *slog.Logger
}

// NewResolver returns a resolver with an empty name map.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		ids:    map[string]uuid.UUID{},
		logger: logger,
	}
}

// Lookup returns the id a name resolved to during this ingestion.
func (r *Resolver) Lookup(name string) (uuid.UUID, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// Len returns the number of resolved names.
func (r *Resolver) Len() int {
	return len(r.ids)
}

// Plan resolves every entity that already exists in the store and returns
// the ones that have to be created, in first-occurrence order. Repeated
// names appear once. reused counts the distinct names found in the store.
func (r *Resolver) Plan(ctx context.Context, store EntityStore, entities []model.ExtractedEntity) (missing []model.ExtractedEntity, reused int, err error) {
	planned := map[string]bool{}
	for _, e := range entities {
		if _, ok := r.ids[e.Name]; ok || planned[e.Name] {
			continue
		}

		existing, err := store.SelectEntityByName(ctx, e.Name)
		switch {
		case err == nil:
			r.ids[e.Name] = existing.ID
			reused++
		case errors.Is(err, helper.ErrNotFound):
			planned[e.Name] = true
			missing = append(missing, e)
		default:
			return nil, 0, helper.NewError("lookup entity", err)
		}
	}

	return missing, reused, nil
}

// Resolve returns the id for the extracted entity, creating it if no entity
// with that name exists. created is false when an existing row was reused.
// Merge calls Plan then Create instead, so all new entities are embedded in
// one batch before any of them is written.
func (r *Resolver) Resolve(ctx context.Context, store EntityStore, extracted model.ExtractedEntity, vector []float32) (uuid.UUID, bool, error) {
	if id, ok := r.ids[extracted.Name]; ok {
		return id, false, nil
	}

	existing, err := store.SelectEntityByName(ctx, extracted.Name)
	if err == nil {
		r.ids[extracted.Name] = existing.ID
		return existing.ID, false, nil
	}
	if !errors.Is(err, helper.ErrNotFound) {
		return uuid.Nil, false, helper.NewError("lookup entity", err)
	}

	return r.Create(ctx, store, extracted, vector)
}

// Create inserts the entity. If a concurrent ingestion inserted the same
// name first, the winner's id is looked up and reused.
func (r *Resolver) Create(ctx context.Context, store EntityStore, extracted model.ExtractedEntity, vector []float32) (uuid.UUID, bool, error) {
	if id, ok := r.ids[extracted.Name]; ok {
		return id, false, nil
	}

	entity := &model.Entity{
		Name:      extracted.Name,
		Type:      extracted.Type,
		Details:   model.Metadata{"description": extracted.Description},
		Embedding: vector,
	}

	created, err := store.InsertEntity(ctx, entity)
	if err != nil {
		return uuid.Nil, false, helper.NewError("insert entity", err)
	}
	if created {
		r.ids[entity.Name] = entity.ID
		return entity.ID, true, nil
	}

	winner, err := store.SelectEntityByName(ctx, extracted.Name)
	if err != nil {
		return uuid.Nil, false, helper.NewError("lookup entity after conflict", err)
	}
	r.logger.Debug("Entity created concurrently, reusing", slog.String("name", extracted.Name))
	r.ids[extracted.Name] = winner.ID

	return winner.ID, false, nil
}

package radar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/radar/core/graph"
	"github.com/siherrmann/radar/core/ingest"
	"github.com/siherrmann/radar/core/pipeline"
	"github.com/siherrmann/radar/core/retrieval"
	"github.com/siherrmann/radar/database"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	loadSql "github.com/siherrmann/radar/sql"
)

// maxSignalEmbeddingRunes bounds the signal text sent to the embedder.
const maxSignalEmbeddingRunes = 8000

var (
	// ErrNoPipeline is returned by operations that need an embedder.
	ErrNoPipeline = errors.New("pipeline with embedder not set, use SetPipeline() first")
	// ErrNoAnswerer is returned by Ask when context was found but no answerer is set.
	ErrNoAnswerer = errors.New("pipeline has no answerer")
	// ErrNoQueryVector is returned when the query could not be embedded.
	ErrNoQueryVector = errors.New("query could not be embedded")
)

// Radar ties the graph store, the processing pipeline and retrieval together
type Radar struct {
	DB       *helper.Database
	Store    *database.GraphStore
	Pipeline *pipeline.Pipeline // Optional - without it signals are stored without vectors or graph data
	Engine   *retrieval.Engine
	Web      *ingest.WebIngestor

	config      model.RadarConfig
	batcher     *pipeline.EmbeddingBatcher
	coordinator *graph.Coordinator
	log         *slog.Logger
}

// NewRadar connects to the database, creates the schema if needed and
// returns a radar without pipeline. A nil logger logs pretty to stdout.
func NewRadar(dbConfig *helper.DatabaseConfiguration, config model.RadarConfig, logger *slog.Logger) (*Radar, error) {
	if logger == nil {
		logger = helper.NewPrettyLogger(os.Stdout, slog.LevelInfo)
	}
	if config.MergePolicy == "" {
		config.MergePolicy = model.FirstWriteWins
	}
	if config.Retrieval.TopK <= 0 {
		config.Retrieval.TopK = model.DefaultRetrievalConfig().TopK
	}
	if config.Retrieval.MaxHops <= 0 {
		config.Retrieval.MaxHops = model.DefaultRetrievalConfig().MaxHops
	}
	space := model.NewVectorSpace(config.Embedding.Dimension)
	config.Embedding.Dimension = space.Dimension

	db, err := helper.NewDatabase("radar", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}

	err = loadSql.Init(db.Instance)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	store, err := database.NewGraphStore(db, space.Dimension, false)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("create graph store", err)
	}

	r := &Radar{
		DB:     db,
		Store:  store,
		Engine: retrieval.NewEngine(store.Signals, space, logger),
		Web:    ingest.NewWebIngestor(nil, logger),
		config: config,
		log:    logger,
	}

	err = r.buildCoordinator()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

// Close closes the database connection
func (r *Radar) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// Config returns the effective configuration.
func (r *Radar) Config() model.RadarConfig {
	return r.config
}

// SetPipeline sets the collaborators used for ingestion and questions.
// Embeddings of the pipeline run through an EmbeddingBatcher.
func (r *Radar) SetPipeline(p *pipeline.Pipeline) error {
	r.Pipeline = p
	r.batcher = nil

	if p != nil && (p.Embedder != nil || p.BatchEmbedder != nil) {
		batcher, err := pipeline.NewEmbeddingBatcher(p.Embedder, p.BatchEmbedder, r.config.Embedding, r.log)
		if err != nil {
			return helper.NewError("create embedding batcher", err)
		}
		r.batcher = batcher
	}

	return r.buildCoordinator()
}

// UseDefaultPipeline builds the pipeline from the provider configuration.
// Embeddings come from the local model, OpenAI or Ollama. With an OpenAI
// key extraction and answers use the chat model, otherwise entities are
// extracted with the local NER model and Ask is unavailable.
func (r *Radar) UseDefaultPipeline() error {
	p, err := NewPipelineFromConfig(r.config)
	if err != nil {
		return err
	}
	return r.SetPipeline(p)
}

// NewPipelineFromConfig creates the collaborators named by config.Providers.
func NewPipelineFromConfig(config model.RadarConfig) (*pipeline.Pipeline, error) {
	providers := config.Providers
	openAIConfig := pipeline.OpenAIConfig{
		APIKey:          providers.OpenAIKey,
		BaseURL:         providers.OpenAIURL,
		ExtractionModel: providers.ExtractionModel,
		EmbeddingModel:  providers.EmbeddingModel,
		AnswerModel:     providers.AnswerModel,
		Dimension:       config.Embedding.Dimension,
	}

	p := pipeline.NewPipeline(nil, nil)

	var err error
	switch providers.Embedder {
	case "", "local":
		p.BatchEmbedder, err = pipeline.DefaultBatchEmbedder()
	case "openai":
		p.BatchEmbedder, err = pipeline.NewOpenAIBatchEmbedder(openAIConfig)
	case "ollama":
		p.BatchEmbedder, err = pipeline.NewOllamaBatchEmbedder(pipeline.OllamaConfig{
			BaseURL: providers.OllamaURL,
			Model:   providers.EmbeddingModel,
		})
	default:
		err = fmt.Errorf("unknown embedder %q (use 'local', 'openai' or 'ollama')", providers.Embedder)
	}
	if err != nil {
		return nil, helper.NewError("create embedder", err)
	}

	if providers.OpenAIKey == "" {
		p.Extractor, err = pipeline.DefaultEntityExtractor()
		if err != nil {
			return nil, helper.NewError("create entity extractor", err)
		}
		return p, nil
	}

	p.Extractor, err = pipeline.NewOpenAIExtractor(openAIConfig)
	if err != nil {
		return nil, helper.NewError("create extractor", err)
	}
	p.Answerer, err = pipeline.NewOpenAIAnswerer(openAIConfig)
	if err != nil {
		return nil, helper.NewError("create answerer", err)
	}

	return p, nil
}

func (r *Radar) buildCoordinator() error {
	var embedder graph.BatchEmbedder
	if r.batcher != nil {
		embedder = r.batcher
	}

	store := graph.StoreFunc(func(ctx context.Context) (graph.Tx, error) {
		tx, err := r.Store.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return tx, nil
	})

	coordinator, err := graph.NewCoordinator(store, embedder, r.log).WithPolicy(r.config.MergePolicy)
	if err != nil {
		return helper.NewError("create coordinator", err)
	}
	r.coordinator = coordinator

	return nil
}

// Ingest extracts the graph from the signal text and merges signal and
// graph in one transaction. A signal without vector is embedded first.
func (r *Radar) Ingest(ctx context.Context, signal *model.Signal) (*model.MergeResult, error) {
	if signal == nil {
		return nil, helper.NewError("ingest", fmt.Errorf("signal is nil"))
	}

	text := signal.RawText
	if text == "" {
		text = signal.Content
	}

	if !signal.HasVector() && r.batcher != nil {
		vectors, err := r.batcher.EmbedMany(ctx, []string{model.Truncate(text, maxSignalEmbeddingRunes)})
		if err != nil {
			return nil, helper.NewError("embed signal", err)
		}
		signal.Embedding = vectors[0]
	}

	extraction := &model.ExtractionResult{}
	if r.Pipeline != nil {
		var err error
		extraction, err = r.Pipeline.Extract(ctx, text, r.log)
		if err != nil {
			return nil, helper.NewError("extract", err)
		}
	}

	result, err := r.coordinator.Merge(ctx, signal, extraction)
	if err != nil {
		return nil, helper.NewError("merge", err)
	}

	return result, nil
}

// IngestText ingests text read from standard input.
func (r *Radar) IngestText(ctx context.Context, text string) (*model.MergeResult, error) {
	signal, err := model.NewSignalFromText(text, model.SignalSourceStdin)
	if err != nil {
		return nil, helper.NewError("create signal", err)
	}
	return r.Ingest(ctx, signal)
}

// IngestFile ingests the content of a text file.
func (r *Radar) IngestFile(ctx context.Context, path string) (*model.MergeResult, error) {
	signal, err := ingest.ReadSource(path, os.Stdin)
	if err != nil {
		return nil, err
	}
	return r.Ingest(ctx, signal)
}

// IngestURL fetches a web page and ingests its readable text.
func (r *Radar) IngestURL(ctx context.Context, url string) (*model.MergeResult, error) {
	signal, err := r.Web.Fetch(ctx, url)
	if err != nil {
		return nil, helper.NewError("fetch signal", err)
	}
	return r.Ingest(ctx, signal)
}

// Retrieve returns the k signals closest to the question.
func (r *Radar) Retrieve(ctx context.Context, question string, k int) ([]*model.Signal, error) {
	query, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.Engine.Retrieve(ctx, query, k)
}

// Ask answers the question from the closest signals. Without any signal
// to answer from the answerer is not called.
func (r *Radar) Ask(ctx context.Context, question string) (*model.Answer, error) {
	signals, err := r.Retrieve(ctx, question, r.config.Retrieval.TopK)
	if err != nil {
		return nil, helper.NewError("retrieve", err)
	}

	answer := &model.Answer{
		Question: question,
		Sources:  signals,
	}
	if len(signals) == 0 {
		answer.Text = model.NoContextAnswer
		return answer, nil
	}

	if r.Pipeline == nil || r.Pipeline.Answerer == nil {
		return nil, helper.NewError("ask", ErrNoAnswerer)
	}

	answer.Text, err = r.Pipeline.Answerer(ctx, question, signals)
	if err != nil {
		return nil, helper.NewError("synthesize answer", err)
	}

	return answer, nil
}

// SearchEntities returns the entities closest to the query text.
func (r *Radar) SearchEntities(ctx context.Context, query string, limit int) ([]*model.Entity, error) {
	if limit <= 0 {
		return []*model.Entity{}, nil
	}
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.Store.Entities.SelectEntitiesBySimilarity(ctx, vector, limit)
}

// Neighborhood returns the entities reachable from the named entity within
// maxHops connections in either direction. maxHops <= 0 uses the configured default.
func (r *Radar) Neighborhood(ctx context.Context, name string, maxHops int, types ...model.ConnectionType) ([]*model.TraversalNode, error) {
	if maxHops <= 0 {
		maxHops = r.config.Retrieval.MaxHops
	}

	entity, err := r.Store.Entities.SelectEntityByName(ctx, name)
	if err != nil {
		return nil, helper.NewError("select entity", err)
	}

	return graph.BFS(ctx, r.Store.Connections, entity.ID, maxHops, types)
}

// Stats counts signals, entities, connections and trends.
func (r *Radar) Stats(ctx context.Context) (*model.GraphStats, error) {
	return r.Store.Stats(ctx)
}

// Export reads the whole graph in the visualiser format.
func (r *Radar) Export(ctx context.Context) (*model.GraphExport, error) {
	snapshot, err := r.Store.Snapshot(ctx)
	if err != nil {
		return nil, helper.NewError("snapshot", err)
	}
	return model.NewGraphExport(snapshot), nil
}

// RecentSignals lists the newest signals first.
func (r *Radar) RecentSignals(ctx context.Context, limit int) ([]*model.Signal, error) {
	return r.Store.Signals.SelectSignals(ctx, limit, 0)
}

// ChangeIndexType changes the signal vector index type between HNSW and IVFFlat
func (r *Radar) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return r.Store.Signals.ChangeIndexType(ctx, indexType, params)
}

func (r *Radar) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if r.batcher == nil {
		return nil, helper.NewError("embed query", ErrNoPipeline)
	}

	vectors, err := r.batcher.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}
	if vectors[0] == nil {
		return nil, helper.NewError("embed query", ErrNoQueryVector)
	}

	return vectors[0], nil
}

package model

import "time"

// FailurePolicy decides what a batch embedding does when one item keeps failing.
type FailurePolicy string

const (
	// FailBatch aborts the whole batch on the first item that cannot be embedded.
	FailBatch FailurePolicy = "fail"
	// Degrade stores no vector for the failed item and continues.
	Degrade FailurePolicy = "degrade"
)

// MergePolicy decides how a sighting of an existing entity or trend is merged.
type MergePolicy string

const (
	// FirstWriteWins keeps the stored description and vector untouched.
	FirstWriteWins MergePolicy = "first_write_wins"
)

// EmbeddingConfig configures the batch embedding pipeline.
type EmbeddingConfig struct {
	Dimension      int           `json:"dimension" mapstructure:"dimension"`
	Concurrency    int           `json:"concurrency" mapstructure:"concurrency"`
	BatchSize      int           `json:"batch_size" mapstructure:"batch_size"`
	MaxRetries     int           `json:"max_retries" mapstructure:"max_retries"`
	InitialBackoff time.Duration `json:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff" mapstructure:"max_backoff"`
	FailurePolicy  FailurePolicy `json:"failure_policy" mapstructure:"failure_policy"`
	// Breaker trips after this ratio of failures once at least 3 requests were seen; 0 disables it.
	BreakerFailureRatio float64       `json:"breaker_failure_ratio" mapstructure:"breaker_failure_ratio"`
	BreakerTimeout      time.Duration `json:"breaker_timeout" mapstructure:"breaker_timeout"`
}

// DefaultEmbeddingConfig returns the defaults used by the pipeline.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Dimension:           DefaultDimension,
		Concurrency:         4,
		BatchSize:           64,
		MaxRetries:          3,
		InitialBackoff:      200 * time.Millisecond,
		MaxBackoff:          5 * time.Second,
		FailurePolicy:       FailBatch,
		BreakerFailureRatio: 0.6,
		BreakerTimeout:      30 * time.Second,
	}
}

// RetrievalConfig configures question answering.
type RetrievalConfig struct {
	TopK int `json:"top_k" mapstructure:"top_k"`
	// MaxHops bounds entity neighbourhood traversal.
	MaxHops int `json:"max_hops" mapstructure:"max_hops"`
}

// DefaultRetrievalConfig returns the retrieval defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:    5,
		MaxHops: 2,
	}
}

// ProviderConfig selects and configures the model collaborators.
type ProviderConfig struct {
	// Embedder is one of "local", "openai" or "ollama".
	Embedder        string `json:"embedder" mapstructure:"embedder"`
	EmbeddingModel  string `json:"embedding_model" mapstructure:"embedding_model"`
	ExtractionModel string `json:"extraction_model" mapstructure:"extraction_model"`
	AnswerModel     string `json:"answer_model" mapstructure:"answer_model"`
	OpenAIKey       string `json:"-" mapstructure:"openai_key"`
	OpenAIURL       string `json:"openai_url" mapstructure:"openai_url"`
	OllamaURL       string `json:"ollama_url" mapstructure:"ollama_url"`
}

// DefaultProviderConfig returns the provider defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Embedder:        "local",
		EmbeddingModel:  "sentence-transformers/all-mpnet-base-v2",
		ExtractionModel: "gpt-4o-mini",
		AnswerModel:     "gpt-4o-mini",
		OllamaURL:       "http://localhost:11434",
	}
}

// RadarConfig bundles the application configuration.
type RadarConfig struct {
	Embedding   EmbeddingConfig `json:"embedding" mapstructure:"embedding"`
	Retrieval   RetrievalConfig `json:"retrieval" mapstructure:"retrieval"`
	Providers   ProviderConfig  `json:"providers" mapstructure:"providers"`
	MergePolicy MergePolicy     `json:"merge_policy" mapstructure:"merge_policy"`
}

// DefaultRadarConfig returns a configuration with every default applied.
func DefaultRadarConfig() RadarConfig {
	return RadarConfig{
		Embedding:   DefaultEmbeddingConfig(),
		Retrieval:   DefaultRetrievalConfig(),
		Providers:   DefaultProviderConfig(),
		MergePolicy: FirstWriteWins,
	}
}

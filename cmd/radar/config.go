package main

import (
	"strings"

	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	"github.com/spf13/viper"
)

// setDefaults registers every configuration key so that environment
// variables like RADAR_EMBEDDING_DIMENSION are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	defaults := model.DefaultRadarConfig()

	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("embedding.dimension", defaults.Embedding.Dimension)
	v.SetDefault("embedding.concurrency", defaults.Embedding.Concurrency)
	v.SetDefault("embedding.batch_size", defaults.Embedding.BatchSize)
	v.SetDefault("embedding.max_retries", defaults.Embedding.MaxRetries)
	v.SetDefault("embedding.initial_backoff", defaults.Embedding.InitialBackoff)
	v.SetDefault("embedding.max_backoff", defaults.Embedding.MaxBackoff)
	v.SetDefault("embedding.failure_policy", string(defaults.Embedding.FailurePolicy))
	v.SetDefault("embedding.breaker_failure_ratio", defaults.Embedding.BreakerFailureRatio)
	v.SetDefault("embedding.breaker_timeout", defaults.Embedding.BreakerTimeout)

	v.SetDefault("retrieval.top_k", defaults.Retrieval.TopK)
	v.SetDefault("retrieval.max_hops", defaults.Retrieval.MaxHops)

	v.SetDefault("providers.embedder", defaults.Providers.Embedder)
	v.SetDefault("providers.embedding_model", defaults.Providers.EmbeddingModel)
	v.SetDefault("providers.extraction_model", defaults.Providers.ExtractionModel)
	v.SetDefault("providers.answer_model", defaults.Providers.AnswerModel)
	v.SetDefault("providers.openai_url", defaults.Providers.OpenAIURL)
	v.SetDefault("providers.ollama_url", defaults.Providers.OllamaURL)
	_ = v.BindEnv("providers.openai_key", "RADAR_PROVIDERS_OPENAI_KEY", "OPENAI_API_KEY")

	v.SetDefault("merge_policy", string(defaults.MergePolicy))
}

// loadConfig decodes the merged flags, environment, config file and defaults.
func loadConfig(v *viper.Viper) (model.RadarConfig, error) {
	config := model.DefaultRadarConfig()
	err := v.Unmarshal(&config)
	if err != nil {
		return model.RadarConfig{}, helper.NewError("decode configuration", err)
	}
	return config, nil
}

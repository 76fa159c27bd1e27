package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

const (
	// DefaultEmbeddingEncoding is the tokenizer of the OpenAI embedding models.
	DefaultEmbeddingEncoding = "cl100k_base"
	// DefaultMaxEmbeddingTokens is the input limit of the OpenAI embedding models.
	DefaultMaxEmbeddingTokens = 8191
	// maxExtractionRunes bounds the text sent for extraction.
	maxExtractionRunes = 30000
)

// OpenAIConfig configures the OpenAI backed collaborators.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	ExtractionModel string
	EmbeddingModel  string
	AnswerModel     string
	Dimension       int
	// MaxInputTokens truncates embedding inputs, DefaultMaxEmbeddingTokens if 0.
	MaxInputTokens int
}

func newOpenAIClient(baseURL string, apiKey string) (*openai.Client, error) {
	if apiKey == "" {
		return nil, helper.NewError("openai client", fmt.Errorf("api key is empty"))
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client, nil
}

// NewOpenAIExtractor returns an extractor that requests JSON schema
// structured output from a chat model.
func NewOpenAIExtractor(config OpenAIConfig) (ExtractFunc, error) {
	client, err := newOpenAIClient(config.BaseURL, config.APIKey)
	if err != nil {
		return nil, err
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "knowledge_graph",
		Description: openai.String("Entities, connections and trends found in the text"),
		Schema:      GenerateSchema(model.ExtractionResult{}),
		Strict:      openai.Bool(true),
	}

	return func(ctx context.Context, text string) (*model.ExtractionResult, error) {
		body := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(config.ExtractionModel),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: schemaParam,
				},
			},
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(ExtractionSystemPrompt),
				openai.UserMessage(model.Truncate(text, maxExtractionRunes)),
			},
			Temperature: openai.Float(0.1),
		}

		response, err := client.Chat.Completions.New(ctx, body)
		if err != nil {
			return nil, helper.NewError("extraction completion", err)
		}
		if len(response.Choices) == 0 {
			return nil, helper.NewError("extraction completion", fmt.Errorf("no choices in response from model"))
		}

		message := response.Choices[0].Message.Content
		if message == "" {
			return nil, helper.NewError("extraction completion", fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason))
		}

		return ParseExtraction(message)
	}, nil
}

// NewOpenAIBatchEmbedder returns a batch embedder. Inputs are truncated to
// the token limit of the model and vectors are requested in the configured
// dimension.
func NewOpenAIBatchEmbedder(config OpenAIConfig) (BatchEmbedFunc, error) {
	client, err := newOpenAIClient(config.BaseURL, config.APIKey)
	if err != nil {
		return nil, err
	}

	enc, err := tiktoken.GetEncoding(DefaultEmbeddingEncoding)
	if err != nil {
		return nil, helper.NewError("tiktoken encoding", err)
	}
	maxTokens := config.MaxInputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxEmbeddingTokens
	}

	return func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return [][]float32{}, nil
		}

		inputs := make([]string, len(texts))
		for i, text := range texts {
			inputs[i] = truncateTokens(enc, text, maxTokens)
		}

		body := openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
			Model: config.EmbeddingModel,
		}
		if config.Dimension > 0 {
			body.Dimensions = openai.Int(int64(config.Dimension))
		}

		response, err := client.Embeddings.New(ctx, body)
		if err != nil {
			return nil, helper.NewError("embedding request", err)
		}
		if len(response.Data) != len(inputs) {
			return nil, helper.NewError("embedding request", fmt.Errorf("%w: got %d want %d", ErrBatchSizeMismatch, len(response.Data), len(inputs)))
		}

		out := make([][]float32, len(inputs))
		for _, embedding := range response.Data {
			idx := int(embedding.Index)
			if idx < 0 || idx >= len(inputs) {
				return nil, helper.NewError("embedding request", fmt.Errorf("embedding index out of range: %d", embedding.Index))
			}
			vec := make([]float32, len(embedding.Embedding))
			for j, v := range embedding.Embedding {
				vec[j] = float32(v)
			}
			out[idx] = vec
		}
		for i := range out {
			if out[i] == nil {
				return nil, helper.NewError("embedding request", fmt.Errorf("missing embedding for index %d", i))
			}
		}

		return out, nil
	}, nil
}

// NewOpenAIEmbedder returns a single text embedder on top of the batch embedder.
func NewOpenAIEmbedder(config OpenAIConfig) (EmbedFunc, error) {
	batch, err := NewOpenAIBatchEmbedder(config)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := batch(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}, nil
}

// NewOpenAIAnswerer returns an answerer that grounds the model on the
// retrieved signals only.
func NewOpenAIAnswerer(config OpenAIConfig) (AnswerFunc, error) {
	client, err := newOpenAIClient(config.BaseURL, config.APIKey)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, question string, signals []*model.Signal) (string, error) {
		body := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(config.AnswerModel),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(AnswerSystemPrompt),
				openai.UserMessage(BuildAnswerPrompt(question, signals)),
			},
			Temperature: openai.Float(0.3),
		}

		response, err := client.Chat.Completions.New(ctx, body)
		if err != nil {
			return "", helper.NewError("answer completion", err)
		}
		if len(response.Choices) == 0 {
			return "", helper.NewError("answer completion", fmt.Errorf("no choices in response from model"))
		}

		return strings.TrimSpace(response.Choices[0].Message.Content), nil
	}, nil
}

// AnswerSystemPrompt instructs a language model to answer from context only.
const AnswerSystemPrompt = `You answer questions about markets and technologies.
Use only the signals given as context. If they do not contain the answer, say so.
Cite signal titles when you use them.`

// BuildAnswerPrompt renders the question together with the context signals.
func BuildAnswerPrompt(question string, signals []*model.Signal) string {
	var b strings.Builder
	b.WriteString("Context signals:\n")
	for i, s := range signals {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, s.Title)
		if s.URL != nil {
			fmt.Fprintf(&b, "URL: %s\n", *s.URL)
		}
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func truncateTokens(enc *tiktoken.Tiktoken, text string, maxTokens int) string {
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// ExtractionSystemPrompt instructs a language model to produce an ExtractionResult.
const ExtractionSystemPrompt = `You are an industry intelligence analyst. Extract a knowledge graph from the text.
Entities are companies (COMPANY), technologies (TECH), people (PERSON) and markets (MARKET).
Use the exact name as written in the text and write one sentence describing each entity.
Connections link two extracted entities by name with one of SUPPORTS, DRIVES, COMPETES_WITH, PART_OF or MENTIONS.
Trends are emerging market patterns with a short description and a velocity such as emerging, accelerating or stabilizing.
Only use entity names in connections that you also listed as entities.`

// GenerateSchema creates a JSON Schema from the given Go type, suitable
// for structured model output.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// ParseExtraction decodes raw model output into an ExtractionResult.
// Double encoded JSON, markdown fences and malformed JSON are repaired.
func ParseExtraction(raw string) (*model.ExtractionResult, error) {
	input := strings.TrimSpace(raw)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, helper.NewError("parse extraction", fmt.Errorf("empty output"))
	}

	result := &model.ExtractionResult{}
	if err := json.Unmarshal([]byte(input), result); err == nil {
		return result, nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), result); err == nil {
			return result, nil
		}
		input = asString
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return nil, helper.NewError("repair extraction", err)
	}

	result = &model.ExtractionResult{}
	if err := json.Unmarshal([]byte(repaired), result); err != nil {
		return nil, helper.NewError("parse extraction", err)
	}

	return result, nil
}

// SafeExtract wraps an extractor so that failures and malformed output
// degrade to an empty result. The result is always normalized.
// Only a cancelled context is returned as an error.
func SafeExtract(extract ExtractFunc, logger *slog.Logger) ExtractFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, text string) (result *model.ExtractionResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Extraction panicked, continuing without graph data", slog.Any("panic", r))
				result, err = &model.ExtractionResult{}, nil
			}
		}()

		raw, err := extract(ctx, text)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logger.Warn("Extraction failed, continuing without graph data", slog.String("error", err.Error()))
			return &model.ExtractionResult{}, nil
		}

		normalized, dropped := raw.Normalize()
		if dropped > 0 {
			logger.Debug("Dropped invalid extracted items", slog.Int("count", dropped))
		}

		return normalized, nil
	}
}

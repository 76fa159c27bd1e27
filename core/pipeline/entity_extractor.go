package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// nerEntityTypes maps NER labels to entity types. Other labels are ignored.
var nerEntityTypes = map[string]model.EntityType{
	"ORG":  model.EntityTypeCompany,
	"PER":  model.EntityTypePerson,
	"MISC": model.EntityTypeTech,
}

// DefaultEntityExtractor creates an offline extractor using a NER model.
// It finds organizations, people and miscellaneous names and produces no
// connections or trends.
func DefaultEntityExtractor() (ExtractFunc, error) {
	// Using KnightsAnalytics optimized distilbert-NER model
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(ctx context.Context, text string) (*model.ExtractionResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return &model.ExtractionResult{}, nil
		}
		return collectEntities(result.Entities[0]), nil
	}, nil
}

// collectEntities keeps labelled names once each, in order of appearance.
// Word piece fragments ("##ing") and unmapped labels are dropped.
func collectEntities(found []pipelines.Entity) *model.ExtractionResult {
	extraction := &model.ExtractionResult{}
	seen := map[string]bool{}
	for _, entity := range found {
		entityType, ok := nerEntityTypes[normalizeEntityLabel(entity.Entity)]
		if !ok {
			continue
		}
		name := strings.TrimSpace(entity.Word)
		if name == "" || strings.HasPrefix(name, "##") || seen[name] {
			continue
		}
		seen[name] = true
		extraction.Entities = append(extraction.Entities, model.ExtractedEntity{
			Name: name,
			Type: entityType,
		})
	}
	return extraction
}

// normalizeEntityLabel removes B- and I- prefixes from NER labels
func normalizeEntityLabel(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}

package vision

import (
	"context"
	"strings"

	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/common"
)

// chartFinding is the structured form of the chart description pass.
type chartFinding struct {
	ContainsChart bool      `json:"contains_chart" jsonschema_description:"Whether the description indicates a chart, graph or plot"`
	Chart         ChartInfo `json:"chart" jsonschema_description:"Chart details, meaningful only when contains_chart is true"`
}

// detectChart describes the image with the vision model and structures
// the description. Returns nil when the image holds no chart.
func (a *Analyzer) detectChart(ctx context.Context, payload ai.ImagePayload) (*ChartInfo, error) {
	description, err := a.ai.GenerateImageDescription(ctx, ai.ChartDetectPrompt, payload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}

	var finding chartFinding
	err = a.ai.GenerateCompletionWithFormat(
		ctx,
		"chart_finding",
		"Structured chart analysis of an image description",
		"Structure this chart description:\n"+description,
		&finding,
	)
	if err != nil {
		return nil, err
	}

	if !finding.ContainsChart || finding.Chart.ChartType == "" {
		return nil, nil
	}
	return &finding.Chart, nil
}

// entityFinding is the structured form of the visible-entity pass.
type entityFinding struct {
	Entities []DetectedEntity `json:"entities" jsonschema_description:"People, objects and structures visible in the image"`
}

// detectEntities lists the people, objects and structures the vision
// model sees, with clamped confidences.
func (a *Analyzer) detectEntities(ctx context.Context, payload ai.ImagePayload) ([]DetectedEntity, error) {
	description, err := a.ai.GenerateImageDescription(ctx, ai.ImageEntitiesPrompt, payload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}

	var finding entityFinding
	err = a.ai.GenerateCompletionWithFormat(
		ctx,
		"visible_entities",
		"Structured list of things visible in an image",
		"Structure this list of visible things:\n"+description,
		&finding,
	)
	if err != nil {
		return nil, err
	}

	entities := make([]DetectedEntity, 0, len(finding.Entities))
	for _, e := range finding.Entities {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		e.Confidence = common.ClampConfidence(e.Confidence)
		entities = append(entities, e)
	}
	return entities, nil
}

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
)

// parsedConfidence is the confidence assigned to a successfully decoded intent.
const parsedConfidence = 0.9

// IntentParser implements ai.IntentParser using an OpenAI-compatible chat API.
type IntentParser struct {
	client llms.Model
	logger *slog.Logger
}

// intentResponse matches the JSON the model is asked to produce.
type intentResponse struct {
	QueryType         string     `json:"query_type"`
	Intent            string     `json:"intent"`
	WaferSizes        []string   `json:"wafer_sizes"`
	Materials         []string   `json:"materials"`
	Categories        []string   `json:"categories"`
	Processes         []string   `json:"processes"`
	TempMin           *float64   `json:"temp_min"`
	TempMax           *float64   `json:"temp_max"`
	ExcludeMaterials  []string   `json:"exclude_materials"`
	ExcludeCategories []string   `json:"exclude_categories"`
	ExcludeTempMin    *float64   `json:"exclude_temp_min"`
	ExcludeTempMax    *float64   `json:"exclude_temp_max"`
	Institution       *string    `json:"institution"`
	OrConditions      []orClause `json:"or_conditions"`
	SearchQuery       string     `json:"search_query"`
}

type orClause struct {
	Process  string `json:"process"`
	Category string `json:"category"`
}

// newIntentParser is an internal constructor that returns the concrete type.
func newIntentParser(config *ai.Config) (*IntentParser, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newGeneratorClient(config)
	if err != nil {
		return nil, err
	}
	return newIntentParserWithModel(client), nil
}

func newIntentParserWithModel(client llms.Model) *IntentParser {
	return &IntentParser{
		client: client,
		logger: slog.Default().With("component", "openai-intent"),
	}
}

// NewIntentParser creates an intent parser using the provided configuration.
//
// Returns ai.IntentParser interface to enforce abstraction.
func NewIntentParser(config *ai.Config) (ai.IntentParser, error) {
	return newIntentParser(config)
}

// ParseIntent asks the model to structure query.
func (p *IntentParser) ParseIntent(ctx context.Context, query string) (*core.Intent, error) {
	content := []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(buildIntentPrompt(query))},
	}}

	response, err := p.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(500),
	)
	if err != nil {
		p.logger.Error("failed to parse intent", "err", err)
		return nil, err
	}
	if len(response.Choices) < 1 {
		return nil, ai.ErrNoChoices
	}

	intent, err := decodeIntent(response.Choices[0].Content, query)
	if err != nil {
		p.logger.Warn("error decoding intent", "response", response.Choices[0].Content, "err", err)
		return nil, err
	}
	p.logger.Debug("parsed intent", "type", intent.Type, "action", intent.Action,
		"exclusions", intent.HasExclusions(), "or", len(intent.Or))
	return intent, nil
}

func decodeIntent(raw, query string) (*core.Intent, error) {
	obj, ok := extractJSONObject(stripCodeFence(raw))
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", ai.ErrMalformedOutput)
	}
	var resp intentResponse
	if err := json.Unmarshal([]byte(repairJSON(obj)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedOutput, err)
	}

	intent := &core.Intent{
		Type:   queryType(resp.QueryType),
		Action: action(resp.Intent),
		Include: core.Facets{
			WaferSizes: resp.WaferSizes,
			Materials:  resp.Materials,
			Categories: resp.Categories,
			Processes:  resp.Processes,
			TempMin:    resp.TempMin,
			TempMax:    resp.TempMax,
		},
		Exclude: core.Facets{
			Materials:  resp.ExcludeMaterials,
			Categories: resp.ExcludeCategories,
			TempMin:    resp.ExcludeTempMin,
			TempMax:    resp.ExcludeTempMax,
		},
		SearchQuery: strings.TrimSpace(resp.SearchQuery),
		Confidence:  parsedConfidence,
	}
	if resp.Institution != nil {
		intent.Institution = *resp.Institution
	}
	for _, c := range resp.OrConditions {
		if c.Process != "" || c.Category != "" {
			intent.Or = append(intent.Or, core.OrCondition{Process: c.Process, Category: c.Category})
		}
	}
	if intent.SearchQuery == "" {
		intent.SearchQuery = query
	}
	return intent, nil
}

func queryType(s string) core.QueryType {
	switch t := core.QueryType(s); t {
	case core.QueryTypeCompound, core.QueryTypeNegative, core.QueryTypeAbstract:
		return t
	}
	return core.QueryTypeSimple
}

func action(s string) core.Action {
	switch s {
	case "comparison":
		return core.ActionCompare
	case "general_question":
		return core.ActionGeneral
	}
	return core.ActionSearch
}

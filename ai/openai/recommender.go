package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
)

// emptyStreamMessage is streamed when there are no candidates.
const emptyStreamMessage = "검색 조건에 맞는 장비를 찾지 못했습니다."

// Recommender implements ai.Recommender using an OpenAI-compatible chat API.
type Recommender struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func newGeneratorClient(config *ai.Config) (llms.Model, error) {
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	return openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken("none"),
		openai.WithModel(config.GeneratorModel),
	)
}

// newRecommender is an internal constructor that returns the concrete type.
func newRecommender(config *ai.Config) (*Recommender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newGeneratorClient(config)
	if err != nil {
		return nil, err
	}
	return newRecommenderWithModel(client, config), nil
}

func newRecommenderWithModel(client llms.Model, config *ai.Config) *Recommender {
	return &Recommender{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-recommender"),
	}
}

// NewRecommender creates a recommender using the provided configuration.
//
// Returns ai.Recommender interface to enforce abstraction.
func NewRecommender(config *ai.Config) (ai.Recommender, error) {
	return newRecommender(config)
}

func messages(system, human string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(human)},
		},
	}
}

// Recommend asks the model to choose among candidates and decodes its JSON answer.
// Output without any JSON object is returned as a bare explanation.
func (r *Recommender) Recommend(ctx context.Context, query string, candidates []*core.Equipment) (*ai.RecommendationResult, error) {
	if len(candidates) == 0 {
		return &ai.RecommendationResult{Recommendations: []ai.Recommendation{}, Explanation: ai.NoCandidatesExplanation}, nil
	}

	content := messages(buildRecommendationSystemPrompt(), buildRecommendationPrompt(query, candidates))
	response, err := r.client.GenerateContent(ctx, content,
		llms.WithTemperature(r.temperature),
		llms.WithMaxTokens(r.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		r.logger.Error("failed to generate recommendation", "err", err)
		return nil, err
	}
	if len(response.Choices) < 1 {
		return nil, ai.ErrNoChoices
	}

	result, err := decodeRecommendation(response.Choices[0].Content)
	if err != nil {
		r.logger.Warn("error parsing recommendation response", "response", response.Choices[0].Content, "err", err)
		return nil, err
	}
	r.logger.Debug("generated recommendation", "candidates", len(candidates), "recommended", len(result.Recommendations))
	return result, nil
}

func decodeRecommendation(raw string) (*ai.RecommendationResult, error) {
	text := stripCodeFence(raw)
	obj, ok := extractJSONObject(text)
	if !ok {
		return &ai.RecommendationResult{Recommendations: []ai.Recommendation{}, Explanation: cleanText(text)}, nil
	}

	var result ai.RecommendationResult
	if err := json.Unmarshal([]byte(repairJSON(obj)), &result); err != nil {
		// Stray ideographs sometimes break the JSON; retry once without them.
		cleaned, ok := extractJSONObject(ai.SanitizeCJK(text))
		if !ok {
			return nil, fmt.Errorf("%w: %w", ai.ErrMalformedOutput, err)
		}
		if err := json.Unmarshal([]byte(repairJSON(cleaned)), &result); err != nil {
			return nil, fmt.Errorf("%w: %w", ai.ErrMalformedOutput, err)
		}
	}

	result.Explanation = cleanText(result.Explanation)
	for i := range result.Recommendations {
		result.Recommendations[i].Reason = cleanText(result.Recommendations[i].Reason)
	}
	if result.Recommendations == nil {
		result.Recommendations = []ai.Recommendation{}
	}
	return &result, nil
}

func cleanText(s string) string {
	return strings.TrimSpace(ai.SanitizeCJK(s))
}

// RecommendStream streams a free-text recommendation. Each chunk is
// sanitized; chunks that sanitize to nothing are dropped.
func (r *Recommender) RecommendStream(ctx context.Context, query string, candidates []*core.Equipment) (<-chan ai.StreamChunk, error) {
	if len(candidates) == 0 {
		out := make(chan ai.StreamChunk, 1)
		out <- ai.StreamChunk{Content: emptyStreamMessage}
		close(out)
		return out, nil
	}

	content := messages(streamSystemPrompt, buildStreamPrompt(query, candidates))
	out := make(chan ai.StreamChunk)

	go func() {
		defer close(out)
		_, err := r.client.GenerateContent(ctx, content,
			llms.WithTemperature(r.temperature),
			llms.WithMaxTokens(r.maxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				text := ai.SanitizeCJKChunk(string(chunk))
				if text == "" {
					return nil
				}
				select {
				case out <- ai.StreamChunk{Content: text}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("recommendation stream failed", "err", err)
			select {
			case out <- ai.StreamChunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

package intent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
)

// Confidence assigned to fallback intents.
const (
	MalformedConfidence = 0.5
	FailedConfidence    = 0.3
)

// Parser runs the deep parse and never fails: collaborator errors degrade to
// a simple intent that searches with the original query.
type Parser struct {
	parser ai.IntentParser
	logger *slog.Logger
}

// NewParser wraps an ai.IntentParser. A nil logger uses slog.Default().
func NewParser(parser ai.IntentParser, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{parser: parser, logger: logger}
}

// Parse returns the intent of query.
func (p *Parser) Parse(ctx context.Context, query string) *core.Intent {
	intent, err := p.parser.ParseIntent(ctx, query)
	if err == nil && intent != nil {
		if intent.SearchQuery == "" {
			intent.SearchQuery = query
		}
		return intent
	}

	confidence := FailedConfidence
	if errors.Is(err, ai.ErrMalformedOutput) {
		confidence = MalformedConfidence
	}
	p.logger.Warn("intent parse failed, using fallback", "err", err, "confidence", confidence)
	return Fallback(query, confidence)
}

// Fallback returns a simple search intent for query.
func Fallback(query string, confidence float64) *core.Intent {
	return &core.Intent{
		Type:        core.QueryTypeSimple,
		Action:      core.ActionSearch,
		SearchQuery: query,
		Confidence:  confidence,
	}
}

package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/cache"
	"github.com/poiesic/fabmatch/clock"
	"github.com/poiesic/fabmatch/conversation"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/extract"
	"github.com/poiesic/fabmatch/intent"
	"github.com/poiesic/fabmatch/rerank"
	"github.com/poiesic/fabmatch/search"
)

// Searcher retrieves fused candidates for a query.
type Searcher interface {
	Search(ctx context.Context, query string, filter core.MetadataFilter, k int) ([]*core.Candidate, error)
}

var _ Searcher = (*search.HybridSearcher)(nil)

// Extractor turns query text into structured conditions.
type Extractor interface {
	Extract(query string) *core.Conditions
}

// Reranker filters, scores and orders candidates.
type Reranker interface {
	Rerank(candidates []*core.Candidate, cond *core.Conditions, userInstitution string) []*core.Candidate
}

// Pipeline answers equipment recommendation requests.
type Pipeline struct {
	searcher    Searcher
	recommender ai.Recommender
	parser      *intent.Parser
	extractor   Extractor
	reranker    Reranker
	classifier  *intent.Classifier
	detector    *conversation.Detector
	sessions    *conversation.Store
	cache       *cache.TTL[*ai.RecommendationResult]
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithExtractor sets the condition extractor.
// Default is an extract.Extractor with built-in rules.
func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) error {
		p.extractor = e
		return nil
	}
}

// WithReranker sets the reranker.
// Default is a rerank.PolicyReranker without policy tables.
func WithReranker(r Reranker) Option {
	return func(p *Pipeline) error {
		p.reranker = r
		return nil
	}
}

// WithClassifier sets the quick intent classifier.
func WithClassifier(c *intent.Classifier) Option {
	return func(p *Pipeline) error {
		p.classifier = c
		return nil
	}
}

// WithDetector sets the follow-up detector.
func WithDetector(d *conversation.Detector) Option {
	return func(p *Pipeline) error {
		p.detector = d
		return nil
	}
}

// WithSessions sets the session store.
func WithSessions(s *conversation.Store) Option {
	return func(p *Pipeline) error {
		p.sessions = s
		return nil
	}
}

// WithCache sets the recommendation cache.
func WithCache(c *cache.TTL[*ai.RecommendationResult]) Option {
	return func(p *Pipeline) error {
		p.cache = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline over searcher using the provider's
// recommender and intent parser.
func NewPipeline(searcher Searcher, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if provider == nil || provider.Recommender() == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		searcher:    searcher,
		recommender: provider.Recommender(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if parser := provider.IntentParser(); parser != nil {
		p.parser = intent.NewParser(parser, p.logger)
	}
	if p.extractor == nil {
		ex, err := extract.NewExtractor(extract.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.extractor = ex
	}
	if p.reranker == nil {
		rr, err := rerank.NewPolicyReranker(rerank.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.reranker = rr
	}
	if p.classifier == nil {
		c, err := intent.NewClassifier(nil)
		if err != nil {
			return nil, err
		}
		p.classifier = c
	}
	if p.detector == nil {
		d, err := conversation.NewDetector(nil)
		if err != nil {
			return nil, err
		}
		p.detector = d
	}
	if p.sessions == nil {
		s, err := conversation.NewStore(conversation.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.sessions = s
	}
	if p.cache == nil {
		p.cache = cache.New[*ai.RecommendationResult](cache.DefaultTTL, clock.System{})
	}
	return p, nil
}

// Sessions returns the session store.
func (p *Pipeline) Sessions() *conversation.Store {
	return p.sessions
}

// PurgeCache drops every cached generation, e.g. after the catalogue changes.
func (p *Pipeline) PurgeCache() {
	p.cache.Clear()
}

// plan is the state shared by Ask and Stream once retrieval is done.
type plan struct {
	query      string
	topK       int
	session    *conversation.Session
	release    func()
	followUp   conversation.FollowUp
	conditions *core.Conditions
	intent     *core.Intent
	selected   []*core.Candidate
	fallback   bool
}

func validate(req Request) (string, int, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "", 0, newError(ErrorInvalidInput, "query must not be empty", ErrEmptyQuery)
	}
	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return "", 0, newError(ErrorInvalidInput, "top_k must be between 1 and 10", ErrInvalidTopK)
	}
	return query, topK, nil
}

// prepare runs every step up to candidate selection. On success the caller
// owns pl.release.
func (p *Pipeline) prepare(ctx context.Context, req Request) (*plan, error) {
	query, topK, err := validate(req)
	if err != nil {
		return nil, err
	}

	session, _ := p.sessions.GetOrCreate(req.SessionID)
	pl := &plan{query: query, topK: topK, session: session, release: session.Begin()}
	ok := false
	defer func() {
		if !ok {
			pl.release()
		}
	}()

	start := time.Now()
	searchText := query
	pl.followUp = p.detector.Detect(query)
	pl.conditions = p.extractor.Extract(query)
	if pl.followUp.IsFollowUp && session.Len() > 0 {
		if previous := session.LastConditions(); previous != nil {
			pl.conditions = conversation.Merge(pl.conditions, previous, pl.followUp)
		}
		if last := session.LastQuery(); last != "" {
			searchText = last + " " + query
		}
		p.logger.Debug("follow-up query", "kind", pl.followUp.Kind, "session", session.ID)
	}
	observe(stageExtract, start)

	if p.parser != nil && p.classifier.Check(query).NeedsParsing() {
		start = time.Now()
		pl.intent = p.parser.Parse(ctx, query)
		observe(stageIntent, start)
		if pl.intent.SearchQuery != "" {
			searchText = pl.intent.SearchQuery
		}
	}

	start = time.Now()
	filter := extract.SemanticFilter(pl.conditions).And(core.FilterFromMap(req.Filters)...)
	candidates, err := p.searcher.Search(ctx, searchText, filter, topK*2)
	observe(stageSearch, start)
	if err != nil {
		p.logger.Error("search failed", "query", searchText, "err", err)
		return nil, searchError(err)
	}

	if len(candidates) > 0 {
		start = time.Now()
		ranked := p.reranker.Rerank(candidates, pl.conditions, req.UserInstitution)
		if pl.intent != nil {
			ranked = intent.Apply(ranked, pl.intent)
		}
		pl.selected, pl.fallback = selectCandidates(ranked, topK)
		observe(stageRerank, start)
	}

	ok = true
	return pl, nil
}

// selectCandidates keeps passing candidates up to topK. When none pass, the
// best candidates are returned regardless of filter outcome.
func selectCandidates(ranked []*core.Candidate, topK int) ([]*core.Candidate, bool) {
	passed := make([]*core.Candidate, 0, topK)
	for _, c := range ranked {
		if c.FilterPassed {
			passed = append(passed, c)
			if len(passed) == topK {
				break
			}
		}
	}
	if len(passed) == 0 && len(ranked) > 0 {
		return ranked[:min(topK, len(ranked))], true
	}
	return passed, false
}

func equipmentOf(candidates []*core.Candidate) []*core.Equipment {
	out := make([]*core.Equipment, len(candidates))
	for i, c := range candidates {
		out[i] = c.Equipment
	}
	return out
}

// Ask answers a request.
func (p *Pipeline) Ask(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	pl, err := p.prepare(ctx, req)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeOf(err), "ask").Inc()
		return nil, err
	}
	defer pl.release()

	resp := &Response{
		Query:      pl.query,
		SessionID:  pl.session.ID,
		FollowUp:   pl.followUp,
		Conditions: pl.conditions,
		Intent:     pl.intent,
		Fallback:   pl.fallback,
	}

	outcome := outcomeOK
	if len(pl.selected) == 0 {
		resp.Explanation = ai.NoCandidatesExplanation
		outcome = outcomeNoMatch
	} else {
		result, cached := p.generate(ctx, pl.query, pl.selected)
		if err := ctx.Err(); err != nil {
			requestsTotal.WithLabelValues(outcomeCanceled, "ask").Inc()
			return nil, err
		}
		resp.Cached = cached
		resp.Recommendations, resp.Explanation = mapRecommendations(result, pl.selected)
		if pl.fallback {
			outcome = outcomeFallback
		}
	}

	p.recordTurn(pl, resp.Recommendations)
	resp.TurnCount = pl.session.Len()
	resp.Elapsed = time.Since(start)
	requestsTotal.WithLabelValues(outcome, "ask").Inc()
	return resp, nil
}

// generate returns the generator output for the selection, from the cache
// when possible. Failures return nil and are not cached.
func (p *Pipeline) generate(ctx context.Context, query string, selected []*core.Candidate) (*ai.RecommendationResult, bool) {
	ids := make([]string, len(selected))
	for i, c := range selected {
		ids[i] = c.ID()
	}
	key := cache.Key(query, ids)
	if result, ok := p.cache.Get(key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return result, true
	}
	cacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	result, err := p.recommender.Recommend(ctx, query, equipmentOf(selected))
	observe(stageGenerate, start)
	if err != nil {
		p.logger.Warn("recommendation generation failed, using defaults", "err", err)
		return nil, false
	}
	p.cache.Set(key, result)
	return result, false
}

// mapRecommendations resolves generated recommendations against the
// selection. Unknown and repeated IDs are ignored; an empty mapping falls
// back to the top candidates with a default reason.
func mapRecommendations(result *ai.RecommendationResult, selected []*core.Candidate) ([]Item, string) {
	byID := make(map[string]*core.Candidate, len(selected))
	for _, c := range selected {
		byID[c.ID()] = c
	}

	var items []Item
	if result != nil {
		for _, rec := range result.Recommendations {
			c, ok := byID[rec.EquipmentID]
			if !ok {
				continue
			}
			delete(byID, rec.EquipmentID)
			items = append(items, newItem(c, rec.Reason))
		}
	}
	if len(items) > 0 {
		explanation := strings.TrimSpace(result.Explanation)
		if explanation == "" {
			explanation = DefaultExplanation
		}
		return items, explanation
	}

	for _, c := range selected[:min(defaultPicks, len(selected))] {
		items = append(items, newItem(c, defaultReason(c)))
	}
	return items, DefaultExplanation
}

func defaultReason(c *core.Candidate) string {
	return fmt.Sprintf(defaultReasonFmt, c.Equipment.Category)
}

func (p *Pipeline) recordTurn(pl *plan, items []Item) {
	ids := make([]string, len(items))
	names := make([]string, 0, summaryNames)
	for i, item := range items {
		ids[i] = item.EquipmentID
		if i < summaryNames {
			names = append(names, item.Name)
		}
	}
	turn := core.Turn{
		Query:          pl.query,
		Summary:        strings.Join(names, ", "),
		Conditions:     pl.conditions,
		RecommendedIDs: ids,
	}
	if err := p.sessions.AppendTurn(pl.session.ID, turn); err != nil {
		p.logger.Warn("could not record turn", "session", pl.session.ID, "err", err)
	}
}

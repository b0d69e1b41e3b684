// Package rerank orders filtered candidates by organizational policy:
// maintenance and visibility exclusions, a score floor, institution
// priority and a result cap.
package rerank

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/filter"
	"github.com/poiesic/fabmatch/policy"
)

// DefaultMaxRecommendations applies when the setting is absent.
const DefaultMaxRecommendations = 10

// PolicySource supplies policy settings and institution ranks.
type PolicySource interface {
	Settings() (policy.Settings, error)
	InstitutionRank(institution string) int
}

var _ PolicySource = (*policy.Manager)(nil)

// Option configures a PolicyReranker.
type Option func(*PolicyReranker) error

// WithPolicy sets the policy source. Without one only filtering, scoring and
// the user's own institution preference apply.
func WithPolicy(p PolicySource) Option {
	return func(r *PolicyReranker) error {
		r.policy = p
		return nil
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *PolicyReranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// PolicyReranker applies hard filters and policy to hybrid search results.
type PolicyReranker struct {
	policy PolicySource
	engine filter.Engine
	logger *slog.Logger
}

// NewPolicyReranker creates a reranker.
func NewPolicyReranker(opts ...Option) (*PolicyReranker, error) {
	r := &PolicyReranker{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Rerank filters, scores and orders candidates for a request from
// userInstitution, which may be empty. The returned slice is a new slice;
// candidates are annotated in place.
func (r *PolicyReranker) Rerank(candidates []*core.Candidate, cond *core.Conditions, userInstitution string) []*core.Candidate {
	if cond == nil {
		cond = &core.Conditions{}
	}
	out := r.engine.Apply(candidates, cond)

	settings, ok := r.settings()
	if ok {
		if settings.Bool(policy.KeyMaintenanceExclude, false) {
			out = slices.DeleteFunc(out, func(c *core.Candidate) bool { return c.Equipment.Maintenance })
		}
		if !settings.Bool(policy.KeyExternalVisible, true) {
			out = slices.DeleteFunc(out, func(c *core.Candidate) bool { return c.Equipment.External })
		}
		if floor := settings.Float(policy.KeyMinRAGScore, 0); floor > 0 {
			out = slices.DeleteFunc(out, func(c *core.Candidate) bool { return c.Fused < floor })
		}
	}

	for _, c := range out {
		filter.Score(c, cond)
	}
	filter.SortByCombined(out)

	for _, c := range out {
		c.PriorityRank = r.rank(c.Equipment.Institution, userInstitution)
	}
	slices.SortStableFunc(out, func(a, b *core.Candidate) int {
		if a.PriorityRank != b.PriorityRank {
			return cmp.Compare(a.PriorityRank, b.PriorityRank)
		}
		return cmp.Compare(b.Combined, a.Combined)
	})

	if ok {
		if limit := settings.Int(policy.KeyMaxRecommendations, DefaultMaxRecommendations); limit >= 0 && len(out) > limit {
			out = out[:limit]
		}
	}
	return out
}

func (r *PolicyReranker) settings() (policy.Settings, bool) {
	if r.policy == nil {
		return nil, false
	}
	settings, err := r.policy.Settings()
	if err != nil {
		r.logger.Warn("policy settings unavailable, skipping policy rules", "err", err)
		return nil, false
	}
	return settings, true
}

func (r *PolicyReranker) rank(institution, userInstitution string) int {
	if userInstitution != "" && institution == userInstitution {
		return 0
	}
	if r.policy == nil {
		return policy.DefaultRank
	}
	return r.policy.InstitutionRank(institution)
}

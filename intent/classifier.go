// Package intent decides when a query needs deep interpretation and applies
// the resulting negative and disjunctive conditions to ranked candidates.
package intent

import (
	"strings"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/patterns"
)

// DefaultQuickRules flag queries that plain facet extraction cannot express.
var DefaultQuickRules = []patterns.Spec{
	{Label: string(core.QueryTypeNegative), Pattern: `아니[였었]`},
	{Label: string(core.QueryTypeNegative), Pattern: `제외`},
	{Label: string(core.QueryTypeNegative), Pattern: `없[는이]`},
	{Label: string(core.QueryTypeNegative), Pattern: `빼고`},
	{Label: string(core.QueryTypeNegative), Pattern: `말고`},
	{Label: string(core.QueryTypeNegative), Pattern: `이하로?만`},
	{Label: string(core.QueryTypeNegative), Pattern: `미만`},
	{Label: string(core.QueryTypeNegative), Pattern: `안\s?되`},
	{Label: string(core.QueryTypeCompound), Pattern: `[과와랑].*둘\s?다`},
	{Label: string(core.QueryTypeCompound), Pattern: `이거나|또는`},
	{Label: string(core.QueryTypeCompound), Pattern: `[과와랑].*함께`},
	{Label: string(core.QueryTypeCompound), Pattern: `동시에`},
	{Label: string(core.QueryTypeAbstract), Pattern: `어떤.*좋을까`},
	{Label: string(core.QueryTypeAbstract), Pattern: `뭐가\s?있`},
	{Label: string(core.QueryTypeAbstract), Pattern: `추천.*해\s?줘`},
	{Label: string(core.QueryTypeAbstract), Pattern: `상황에서`},
}

// Check is the outcome of the quick classifier.
type Check struct {
	Negative bool
	Compound bool
	Abstract bool
}

// NeedsParsing reports whether any rule fired.
func (c Check) NeedsParsing() bool {
	return c.Negative || c.Compound || c.Abstract
}

// Classifier is a rule-based pre-check run before the expensive model parse.
type Classifier struct {
	rules patterns.Table
}

// NewClassifier compiles specs into a classifier. Nil specs select
// DefaultQuickRules.
func NewClassifier(specs []patterns.Spec) (*Classifier, error) {
	if specs == nil {
		specs = DefaultQuickRules
	}
	rules, err := patterns.Compile(specs)
	if err != nil {
		return nil, err
	}
	return &Classifier{rules: rules}, nil
}

// Check classifies query.
func (c *Classifier) Check(query string) Check {
	var out Check
	for _, label := range c.rules.Labels(strings.ToLower(query)) {
		switch core.QueryType(label) {
		case core.QueryTypeNegative:
			out.Negative = true
		case core.QueryTypeCompound:
			out.Compound = true
		case core.QueryTypeAbstract:
			out.Abstract = true
		}
	}
	return out
}

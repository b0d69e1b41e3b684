package conversation

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/fabmatch/patterns"
)

// Follow-up kinds.
const (
	KindConditionChange   = "condition_change"
	KindConditionReplace  = "condition_replace"
	KindReferencePrevious = "reference_previous"
	KindAddCondition      = "add_condition"
	KindSimilarRequest    = "similar_request"
	KindComparison        = "comparison"
	KindAdjustRange       = "adjust_range"
)

const (
	patternConfidence  = 0.8
	fallbackConfidence = 0.6
	fallbackMaxRunes   = 20
)

// DefaultFollowUpRules are evaluated in order; the first match wins.
var DefaultFollowUpRules = []patterns.Spec{
	{Label: KindConditionChange, Pattern: `(그럼|그러면)\s*(이|저)\s*조건`, Confidence: patternConfidence},
	{Label: KindConditionReplace, Pattern: `(대신|말고)\s*(.+)(으로|로)\s*(바꿔|변경)`, Confidence: patternConfidence},
	{Label: KindConditionReplace, Pattern: `(.+)(으로|로)\s*(바꿔|변경)`, Confidence: patternConfidence},
	{Label: KindReferencePrevious, Pattern: `(그|저|이)\s*장비`, Confidence: patternConfidence},
	{Label: KindReferencePrevious, Pattern: `첫\s*번째|두\s*번째|세\s*번째`, Confidence: patternConfidence},
	{Label: KindReferencePrevious, Pattern: `맨\s*(위|아래|처음|마지막)`, Confidence: patternConfidence},
	{Label: KindAddCondition, Pattern: `(거기에|추가로|더)\s*(.+)(도|만)`, Confidence: patternConfidence},
	{Label: KindSimilarRequest, Pattern: `(비슷한|유사한)\s*(다른|장비)`, Confidence: patternConfidence},
	{Label: KindComparison, Pattern: `(더|가장)\s*(싼|비싼|좋은|빠른)`, Confidence: patternConfidence},
	{Label: KindComparison, Pattern: `(차이|비교)`, Confidence: patternConfidence},
	{Label: KindAdjustRange, Pattern: `(더|좀)\s*(넓|좁)(게|히|혀)`, Confidence: patternConfidence},
	{Label: KindConditionChange, Pattern: `^\s*(그럼|그러면)\s`, Confidence: patternConfidence},
}

var demonstratives = []string{"이거", "저거", "그거", "이건", "그건"}

// FollowUp is the detector's verdict on a query.
type FollowUp struct {
	IsFollowUp bool
	Kind       string
	Confidence float64
}

// Detector recognizes queries that refer to the previous turn.
type Detector struct {
	rules patterns.Table
}

// NewDetector compiles specs into a detector. Nil specs select
// DefaultFollowUpRules. Rules without a confidence get 0.8.
func NewDetector(specs []patterns.Spec) (*Detector, error) {
	if specs == nil {
		specs = DefaultFollowUpRules
	}
	rules, err := patterns.Compile(specs)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if rules[i].Confidence == 0 {
			rules[i].Confidence = patternConfidence
		}
	}
	return &Detector{rules: rules}, nil
}

// Detect classifies query. Short queries with a demonstrative pronoun are
// treated as references to the previous result.
func (d *Detector) Detect(query string) FollowUp {
	if rule, ok := d.rules.First(strings.ToLower(query)); ok {
		return FollowUp{IsFollowUp: true, Kind: rule.Label, Confidence: rule.Confidence}
	}
	if utf8.RuneCountInString(query) < fallbackMaxRunes {
		for _, word := range demonstratives {
			if strings.Contains(query, word) {
				return FollowUp{IsFollowUp: true, Kind: KindReferencePrevious, Confidence: fallbackConfidence}
			}
		}
	}
	return FollowUp{}
}

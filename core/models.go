package core

import (
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Digest returns a short hex BLAKE2b digest of the given parts.
// Identical input always produces the identical digest.
func Digest(parts ...string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Equipment is a persisted lab equipment record.
type Equipment struct {
	ID             string
	Name           string
	NameEN         string
	Category       string
	Part           string   // Process part, e.g. "Front-end"
	WaferSizes     []string // Normalized sizes such as "6 inch"
	Materials      []string
	TempMin        *float64 // ℃, nil when unknown
	TempMax        *float64 // ℃, nil when unknown
	Description    string
	Tags           []string
	Institution    string
	Location       string
	ReservationURL string
	Maintenance    bool // Currently under maintenance
	External       bool // Owned by an external partner institution
	Vector         []float32
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// Document returns the text indexed for keyword and semantic search.
func (e *Equipment) Document() string {
	parts := []string{
		e.Name,
		e.NameEN,
		e.Category,
		e.Part,
		e.Description,
		strings.Join(e.WaferSizes, " "),
		strings.Join(e.Materials, " "),
		strings.Join(e.Tags, " "),
		e.Institution,
	}
	parts = slices.DeleteFunc(parts, func(s string) bool { return s == "" })
	return strings.Join(parts, " ")
}

// ContentHash identifies the searchable content of the record.
// Re-embedding is only needed when it changes.
func (e *Equipment) ContentHash() string {
	return Digest(e.ID, e.Document())
}

// HasTemperature reports whether both temperature bounds are known.
func (e *Equipment) HasTemperature() bool {
	return e.TempMin != nil && e.TempMax != nil
}

// Float returns a pointer to v, for building nullable bounds.
func Float(v float64) *float64 {
	return &v
}

// CheckResult is the outcome of a single constraint check.
type CheckResult struct {
	Name   string
	Passed bool
	Reason string
}

// Candidate wraps an equipment record with the scores computed for one request.
// The Equipment is shared and must be treated as read-only.
type Candidate struct {
	Equipment *Equipment

	Lexical      float64 // Normalized BM25 score
	Semantic     float64 // Vector similarity in [0,1]
	Fused        float64 // Weighted lexical/semantic fusion
	Match        float64 // Fraction of requested facets satisfied
	Combined     float64 // Final ranking score
	PriorityRank int     // Institution rank, lower is better

	FilterPassed bool
	Checks       []CheckResult
}

// NewCandidate creates a candidate that passes filtering until checked.
func NewCandidate(e *Equipment) *Candidate {
	return &Candidate{Equipment: e, FilterPassed: true}
}

// ID returns the equipment identifier.
func (c *Candidate) ID() string {
	return c.Equipment.ID
}

// FailedChecks returns the checks that did not pass.
func (c *Candidate) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, check := range c.Checks {
		if !check.Passed {
			failed = append(failed, check)
		}
	}
	return failed
}

// Conditions are the structured facets extracted from a single query turn.
type Conditions struct {
	Original         string
	Normalized       string
	WaferSizes       []string
	TempMin          *float64
	TempMax          *float64
	Materials        []string
	Categories       []string
	MappedCategories []string // Categories inferred from process keywords
	Institutions     []string
	Keywords         []string
}

// Clone returns a deep copy.
func (c *Conditions) Clone() *Conditions {
	if c == nil {
		return &Conditions{}
	}
	out := &Conditions{
		Original:         c.Original,
		Normalized:       c.Normalized,
		WaferSizes:       slices.Clone(c.WaferSizes),
		Materials:        slices.Clone(c.Materials),
		Categories:       slices.Clone(c.Categories),
		MappedCategories: slices.Clone(c.MappedCategories),
		Institutions:     slices.Clone(c.Institutions),
		Keywords:         slices.Clone(c.Keywords),
	}
	if c.TempMin != nil {
		out.TempMin = Float(*c.TempMin)
	}
	if c.TempMax != nil {
		out.TempMax = Float(*c.TempMax)
	}
	return out
}

// AllCategories returns explicit and mapped categories without duplicates.
func (c *Conditions) AllCategories() []string {
	out := make([]string, 0, len(c.Categories)+len(c.MappedCategories))
	for _, cat := range c.Categories {
		if !slices.Contains(out, cat) {
			out = append(out, cat)
		}
	}
	for _, cat := range c.MappedCategories {
		if !slices.Contains(out, cat) {
			out = append(out, cat)
		}
	}
	return out
}

// IsEmpty reports whether no facet was extracted.
func (c *Conditions) IsEmpty() bool {
	return len(c.WaferSizes) == 0 && c.TempMin == nil && c.TempMax == nil &&
		len(c.Materials) == 0 && len(c.Categories) == 0 &&
		len(c.MappedCategories) == 0 && len(c.Institutions) == 0
}

// QueryType classifies the structure of a query.
type QueryType string

const (
	QueryTypeSimple   QueryType = "simple"
	QueryTypeCompound QueryType = "compound"
	QueryTypeNegative QueryType = "negative"
	QueryTypeAbstract QueryType = "abstract"
)

// Action is what the user wants done with the results.
type Action string

const (
	ActionSearch  Action = "search"
	ActionCompare Action = "compare"
	ActionGeneral Action = "general"
)

// Facets is a set of equipment conditions used by an Intent.
type Facets struct {
	WaferSizes []string
	Materials  []string
	Categories []string
	Processes  []string
	TempMin    *float64
	TempMax    *float64
}

// OrCondition is one clause of a disjunctive request.
// Exactly one of Process or Category is normally set.
type OrCondition struct {
	Process  string
	Category string
}

// Intent is the structured interpretation of a complex query.
type Intent struct {
	Type        QueryType
	Action      Action
	Include     Facets
	Exclude     Facets
	Or          []OrCondition
	Institution string
	SearchQuery string
	Confidence  float64
}

// HasExclusions reports whether any negated condition is present.
func (i *Intent) HasExclusions() bool {
	return i.Exclude.TempMin != nil || i.Exclude.TempMax != nil ||
		len(i.Exclude.Materials) > 0 || len(i.Exclude.Categories) > 0
}

// Turn is one query/response exchange within a session.
type Turn struct {
	Query          string
	Summary        string
	Conditions     *Conditions
	RecommendedIDs []string
	Timestamp      time.Time
}

// Package extract turns a free-text equipment request into structured
// conditions: wafer sizes, a temperature window, materials, categories and
// institutions. Extraction is rule based and never fails; a query with no
// recognizable facet simply yields empty conditions.
package extract

import (
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/lexical"
)

var (
	inchPattern     = regexp.MustCompile(`(\d+)\s*(?:인치|inch|")`)
	tempRangePat    = regexp.MustCompile(`(\d+)\s*[~～-]\s*(\d+)\s*(?:도|℃|°C|°)`)
	tempMinPattern  = regexp.MustCompile(`(\d+)\s*(?:도|℃|°C|°)\s*(?:이상|초과)`)
	tempMaxPattern  = regexp.MustCompile(`(\d+)\s*(?:도|℃|°C|°)\s*(?:이하|미만|까지)`)
	tempUpToPattern = regexp.MustCompile(`[~～](\d+)\s*(?:도|℃|°C|°)`)
)

// CategoryMapper maps process keywords in a query to equipment categories.
type CategoryMapper interface {
	MapCategories(query string) []string
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithRules sets the initial rules. Defaults to DefaultRules.
func WithRules(r *Rules) Option {
	return func(e *Extractor) error {
		if r == nil {
			return errors.New("rules cannot be nil")
		}
		e.rules.Store(compile(r))
		return nil
	}
}

// WithCategoryMapper fills Conditions.MappedCategories from process keywords.
func WithCategoryMapper(m CategoryMapper) Option {
	return func(e *Extractor) error {
		e.mapper = m
		return nil
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// Extractor extracts conditions from queries. Rules can be swapped at
// runtime while extractions are in flight.
type Extractor struct {
	rules  atomic.Pointer[compiledRules]
	mapper CategoryMapper
	logger *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{logger: slog.Default()}
	e.rules.Store(compile(DefaultRules()))
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// SetRules replaces the active rules.
func (e *Extractor) SetRules(r *Rules) {
	e.rules.Store(compile(r))
}

// Reload loads rules from path. When the file is missing or malformed the
// built-in defaults are installed and the load error is returned.
func (e *Extractor) Reload(path string) error {
	r, err := LoadRules(path)
	if err != nil {
		e.logger.Warn("filter rules unavailable, using defaults", "path", path, "err", err)
		e.SetRules(DefaultRules())
		return err
	}
	e.SetRules(r)
	e.logger.Info("filter rules loaded", "path", path,
		"materials", len(r.Materials), "categories", len(r.Categories), "institutions", len(r.Institutions))
	return nil
}

// Extract parses a query into conditions.
func (e *Extractor) Extract(query string) *core.Conditions {
	query = norm.NFC.String(query)
	minT, maxT := e.Temperature(query)

	c := &core.Conditions{
		Original:     query,
		Normalized:   strings.Join(strings.Fields(strings.ToLower(query)), " "),
		WaferSizes:   e.WaferSizes(query),
		TempMin:      minT,
		TempMax:      maxT,
		Materials:    e.Materials(query),
		Categories:   e.Categories(query),
		Institutions: e.Institutions(query),
		Keywords:     lexical.Tokenize(query),
	}
	if e.mapper != nil {
		c.MappedCategories = e.mapper.MapCategories(query)
	}
	return c
}

// WaferSizes returns the normalized wafer sizes mentioned in text, smallest first.
func (e *Extractor) WaferSizes(text string) []string {
	r := e.rules.Load()
	lower := strings.ToLower(text)

	var sizes []string
	add := func(size string) {
		if !slices.Contains(sizes, size) {
			sizes = append(sizes, size)
		}
	}
	for _, m := range inchPattern.FindAllStringSubmatch(lower, -1) {
		size := m[1] + " inch"
		if _, ok := r.validSizes[size]; ok {
			add(size)
		}
	}
	for _, alias := range r.mmAliases {
		if alias.pattern.MatchString(lower) {
			add(alias.inch)
		}
	}
	slices.SortFunc(sizes, func(a, b string) int {
		return inchValue(a) - inchValue(b)
	})
	return sizes
}

func inchValue(size string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(size, " inch"))
	return n
}

// Temperature returns the requested temperature window. Either bound may be nil.
func (e *Extractor) Temperature(text string) (minT, maxT *float64) {
	if m := tempRangePat.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1]), parseFloat(m[2])
	}
	if m := tempMinPattern.FindStringSubmatch(text); m != nil {
		minT = parseFloat(m[1])
	}
	m := tempMaxPattern.FindStringSubmatch(text)
	if m == nil {
		m = tempUpToPattern.FindStringSubmatch(text)
	}
	if m != nil {
		maxT = parseFloat(m[1])
	}

	r := e.rules.Load()
	if minT == nil && strings.Contains(text, "고온") {
		minT = core.Float(r.highTemp)
	}
	if maxT == nil && strings.Contains(text, "저온") {
		maxT = core.Float(r.lowTemp)
	}
	return minT, maxT
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Materials returns canonical material names mentioned in text.
func (e *Extractor) Materials(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, rule := range e.rules.Load().materials {
		matched := false
		if rule.pattern != nil {
			matched = rule.pattern.MatchString(lower)
		} else {
			matched = strings.Contains(lower, rule.key)
		}
		if matched && !slices.Contains(out, rule.canonical) {
			out = append(out, rule.canonical)
		}
	}
	return out
}

// Categories returns equipment categories named in text.
func (e *Extractor) Categories(text string) []string {
	return lookup(e.rules.Load().categories, strings.ToLower(text))
}

// Institutions returns institutions named in text. Keys are case sensitive.
func (e *Extractor) Institutions(text string) []string {
	return lookup(e.rules.Load().institutions, text)
}

func lookup(entries []entry, text string) []string {
	var out []string
	for _, ent := range entries {
		if strings.Contains(text, ent.key) && !slices.Contains(out, ent.canonical) {
			out = append(out, ent.canonical)
		}
	}
	return out
}

// SemanticFilter derives the metadata filter passed to the vector retriever.
// Only the first institution is used; the remaining facets are checked after
// retrieval so that near misses can still be ranked.
func SemanticFilter(c *core.Conditions) core.MetadataFilter {
	if c == nil || len(c.Institutions) == 0 {
		return nil
	}
	return core.MetadataFilter{{Field: core.FieldInstitution, Op: core.OpEquals, Value: c.Institutions[0]}}
}

type entry struct {
	key       string
	canonical string
	pattern   *regexp.Regexp
}

type mmAlias struct {
	pattern *regexp.Regexp
	inch    string
}

type compiledRules struct {
	validSizes   map[string]struct{}
	mmAliases    []mmAlias
	highTemp     float64
	lowTemp      float64
	materials    []entry
	categories   []entry
	institutions []entry
}

func compile(r *Rules) *compiledRules {
	r.fillDefaults()
	c := &compiledRules{
		validSizes: make(map[string]struct{}, len(r.WaferSizes.ValidSizes)),
		highTemp:   *r.Temperature.HighTempThreshold,
		lowTemp:    *r.Temperature.LowTempThreshold,
	}
	for _, size := range r.WaferSizes.ValidSizes {
		c.validSizes[size] = struct{}{}
	}
	for _, key := range sortedKeys(r.WaferSizes.MMToInch) {
		mm := regexp.QuoteMeta(strings.TrimSuffix(strings.ToLower(key), "mm"))
		c.mmAliases = append(c.mmAliases, mmAlias{
			pattern: regexp.MustCompile(`(?:^|\D)` + mm + `\s*mm`),
			inch:    r.WaferSizes.MMToInch[key],
		})
	}
	for _, key := range sortedKeys(r.Materials) {
		lower := strings.ToLower(key)
		ent := entry{key: lower, canonical: r.Materials[key]}
		if isASCII(lower) {
			ent.pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(lower) + `\b`)
		}
		c.materials = append(c.materials, ent)
	}
	for _, key := range sortedKeys(r.Categories) {
		c.categories = append(c.categories, entry{key: strings.ToLower(key), canonical: r.Categories[key]})
	}
	for _, key := range sortedKeys(r.Institutions) {
		c.institutions = append(c.institutions, entry{key: key, canonical: r.Institutions[key]})
	}
	return c
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

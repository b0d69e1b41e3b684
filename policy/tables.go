package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Policy file names inside the policy directory.
const (
	InstitutionFile = "institution_priority.json"
	SettingsFile    = "policy_settings.json"
	MappingFile     = "process_equipment_mapping.json"
)

// DefaultRank is the priority of institutions that are not listed.
const DefaultRank = 999

// maxMappedCategories caps the categories inferred for one query.
const maxMappedCategories = 5

// Institution is one entry of institution_priority.json.
type Institution struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Active reports whether the entry participates in ranking. Entries without
// the flag are active.
func (i Institution) Active() bool {
	return i.IsActive == nil || *i.IsActive
}

// Mapping ties a process keyword to the equipment categories that perform it.
type Mapping struct {
	Keyword    string   `json:"keyword"`
	KeywordEN  string   `json:"keyword_en,omitempty"`
	Categories []string `json:"categories"`
}

type institutionFile struct {
	Institutions []Institution `json:"institutions"`
}

type settingsFile struct {
	Policies []Setting `json:"policies"`
}

type mappingFile struct {
	Mappings     []Mapping `json:"mappings"`
	ExactMatches []string  `json:"exact_matches"`
}

type keywordMapping struct {
	keyword    string
	categories []string
}

// Tables is an immutable snapshot of the institution and process mapping tables.
type Tables struct {
	institutions []Institution
	ranks        map[string]int
	mappings     []keywordMapping
	exact        []string
}

// CategoryMatch explains why a category was inferred from a query.
type CategoryMatch struct {
	Keyword  string
	Category string
	Exact    bool
	Priority int
}

// Institutions returns the active institutions in file order.
func (t *Tables) Institutions() []Institution {
	return slices.Clone(t.institutions)
}

// Rank returns the configured priority of an institution, matched by id or
// name. Unlisted institutions rank DefaultRank.
func (t *Tables) Rank(institution string) int {
	if rank, ok := t.ranks[institution]; ok {
		return rank
	}
	return DefaultRank
}

// Matches finds the process keywords in query. Exact keywords map to their own
// upper-cased name with priority 1; mapped keywords contribute their categories
// with priority 10 plus their position. Results are ordered by priority.
func (t *Tables) Matches(query string) []CategoryMatch {
	lower := strings.ToLower(query)
	var matched []CategoryMatch
	for _, exact := range t.exact {
		if strings.Contains(lower, exact) {
			matched = append(matched, CategoryMatch{Keyword: exact, Category: strings.ToUpper(exact), Exact: true, Priority: 1})
		}
	}
	for _, m := range t.mappings {
		if !strings.Contains(lower, m.keyword) {
			continue
		}
		for idx, cat := range m.categories {
			if slices.ContainsFunc(matched, func(c CategoryMatch) bool { return c.Exact && c.Category == cat }) {
				continue
			}
			matched = append(matched, CategoryMatch{Keyword: m.keyword, Category: cat, Priority: 10 + idx})
		}
	}
	slices.SortStableFunc(matched, func(a, b CategoryMatch) int { return a.Priority - b.Priority })
	return matched
}

// MapCategories returns up to five distinct categories inferred from query.
func (t *Tables) MapCategories(query string) []string {
	var out []string
	for _, m := range t.Matches(query) {
		if slices.Contains(out, m.Category) {
			continue
		}
		out = append(out, m.Category)
		if len(out) == maxMappedCategories {
			break
		}
	}
	return out
}

// loadTables reads the institution and mapping files from dir. A missing
// file yields an empty table; a malformed one yields an empty table and an
// error.
func loadTables(dir string) (*Tables, error) {
	t := &Tables{ranks: map[string]int{}}
	var errs []error

	inst, err := readJSON[institutionFile](filepath.Join(dir, InstitutionFile))
	if err != nil {
		errs = append(errs, err)
	}
	for _, i := range inst.Institutions {
		if !i.Active() {
			continue
		}
		t.institutions = append(t.institutions, i)
		if i.ID != "" {
			t.ranks[i.ID] = i.Priority
		}
		if i.Name != "" {
			t.ranks[i.Name] = i.Priority
		}
	}

	mapping, err := readJSON[mappingFile](filepath.Join(dir, MappingFile))
	if err != nil {
		errs = append(errs, err)
	}
	for _, m := range mapping.Mappings {
		if m.Keyword != "" {
			t.mappings = append(t.mappings, keywordMapping{keyword: strings.ToLower(m.Keyword), categories: m.Categories})
		}
		if m.KeywordEN != "" {
			t.mappings = append(t.mappings, keywordMapping{keyword: strings.ToLower(m.KeywordEN), categories: m.Categories})
		}
	}
	for _, exact := range mapping.ExactMatches {
		if exact = strings.ToLower(exact); exact != "" && !slices.Contains(t.exact, exact) {
			t.exact = append(t.exact, exact)
		}
	}

	return t, errors.Join(errs...)
}

func loadSettings(dir string) (Settings, error) {
	f, err := readJSON[settingsFile](filepath.Join(dir, SettingsFile))
	settings := make(Settings, len(f.Policies))
	for _, p := range f.Policies {
		if p.Key != "" {
			settings[p.Key] = p
		}
	}
	return settings, err
}

// readJSON decodes path into a T. A missing file decodes to the zero T.
func readJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrInvalidPolicyFile, filepath.Base(path), err)
	}
	return v, nil
}

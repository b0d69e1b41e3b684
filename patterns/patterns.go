// Package patterns implements ordered, data-driven regular expression rule
// tables. Rules are evaluated in order and the first match wins unless the
// caller asks for every matching label.
//
// Tables are built from Spec values, either compiled into the binary or
// loaded from a YAML file so the query classifiers can be tuned without a
// rebuild:
//
//	quick:
//	  - label: negative
//	    pattern: '제외'
//	followup:
//	  - label: condition_change
//	    pattern: '^(그럼|그러면)'
//	    confidence: 0.8
package patterns

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPattern is returned when a rule has no pattern or label.
var ErrEmptyPattern = errors.New("pattern and label are required")

// Spec describes one rule before compilation.
type Spec struct {
	Label      string  `yaml:"label"`
	Pattern    string  `yaml:"pattern"`
	Confidence float64 `yaml:"confidence,omitempty"`
}

// Rule is a compiled Spec.
type Rule struct {
	Label      string
	Confidence float64
	re         *regexp.Regexp
}

// MatchString reports whether the rule matches text.
func (r Rule) MatchString(text string) bool {
	return r.re.MatchString(text)
}

// String returns the source pattern.
func (r Rule) String() string {
	return r.re.String()
}

// Table is an ordered list of rules.
type Table []Rule

// Compile builds a table from specs, preserving order.
func Compile(specs []Spec) (Table, error) {
	table := make(Table, 0, len(specs))
	for i, spec := range specs {
		if spec.Pattern == "" || spec.Label == "" {
			return nil, fmt.Errorf("rule %d: %w", i, ErrEmptyPattern)
		}
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Label, err)
		}
		table = append(table, Rule{Label: spec.Label, Confidence: spec.Confidence, re: re})
	}
	return table, nil
}

// MustCompile is like Compile but panics on error. Use for built-in tables.
func MustCompile(specs []Spec) Table {
	table, err := Compile(specs)
	if err != nil {
		panic(err)
	}
	return table
}

// First returns the first rule matching text.
func (t Table) First(text string) (Rule, bool) {
	for _, rule := range t {
		if rule.MatchString(text) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Labels returns the distinct labels of every matching rule, in table order.
func (t Table) Labels(text string) []string {
	var labels []string
	for _, rule := range t {
		if !slices.Contains(labels, rule.Label) && rule.MatchString(text) {
			labels = append(labels, rule.Label)
		}
	}
	return labels
}

// File is the on-disk layout of a pattern file.
type File struct {
	Quick    []Spec `yaml:"quick"`
	FollowUp []Spec `yaml:"followup"`
}

// Load reads a YAML pattern file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

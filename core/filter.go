package core

import (
	"fmt"
	"slices"
	"strings"
)

// Operator is a metadata comparison operator.
type Operator string

const (
	// OpContains matches when a list field contains the value.
	OpContains Operator = "contains"
	// OpEquals matches when a scalar field equals the value.
	OpEquals Operator = "eq"
	// OpGreaterEqual matches numeric fields >= value.
	OpGreaterEqual Operator = "gte"
	// OpLessEqual matches numeric fields <= value.
	OpLessEqual Operator = "lte"
)

// Metadata field names understood by MetadataFilter.
const (
	FieldWaferSizes  = "wafer_sizes"
	FieldMaterials   = "materials"
	FieldTempMin     = "temp_min"
	FieldTempMax     = "temp_max"
	FieldCategory    = "category"
	FieldInstitution = "institution"
)

// Predicate is a single field/operator/value triple.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// MetadataFilter is a conjunction of predicates. An empty filter matches everything.
type MetadataFilter []Predicate

// And returns a filter matching both f and the given predicates.
func (f MetadataFilter) And(preds ...Predicate) MetadataFilter {
	out := slices.Clone(f)
	return append(out, preds...)
}

// Matches reports whether the equipment satisfies every predicate.
// Numeric predicates fail when the field is unknown.
func (f MetadataFilter) Matches(e *Equipment) bool {
	for _, p := range f {
		if !p.matches(e) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(e *Equipment) bool {
	switch p.Op {
	case OpContains:
		value := fmt.Sprint(p.Value)
		switch p.Field {
		case FieldWaferSizes:
			return slices.Contains(e.WaferSizes, value)
		case FieldMaterials:
			return slices.ContainsFunc(e.Materials, func(m string) bool {
				return strings.EqualFold(m, value)
			})
		}
	case OpEquals:
		value := fmt.Sprint(p.Value)
		switch p.Field {
		case FieldCategory:
			return e.Category == value
		case FieldInstitution:
			return e.Institution == value
		}
	case OpGreaterEqual, OpLessEqual:
		value, ok := toFloat(p.Value)
		if !ok {
			return false
		}
		var field *float64
		switch p.Field {
		case FieldTempMin:
			field = e.TempMin
		case FieldTempMax:
			field = e.TempMax
		}
		if field == nil {
			return false
		}
		if p.Op == OpGreaterEqual {
			return *field >= value
		}
		return *field <= value
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// FilterFromMap converts a request filter map into a MetadataFilter.
// Recognized keys: wafer_size, material, temp_min, temp_max, category, institution.
// A requested minimum temperature requires the equipment maximum to reach it and
// vice versa. Unknown keys and empty values are ignored.
func FilterFromMap(m map[string]any) MetadataFilter {
	var f MetadataFilter
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := m[key]
		if value == nil || value == "" {
			continue
		}
		switch key {
		case "wafer_size":
			f = append(f, Predicate{Field: FieldWaferSizes, Op: OpContains, Value: value})
		case "material":
			f = append(f, Predicate{Field: FieldMaterials, Op: OpContains, Value: value})
		case "temp_min":
			if n, ok := toFloat(value); ok && n != 0 {
				f = append(f, Predicate{Field: FieldTempMax, Op: OpGreaterEqual, Value: n})
			}
		case "temp_max":
			if n, ok := toFloat(value); ok && n != 0 {
				f = append(f, Predicate{Field: FieldTempMin, Op: OpLessEqual, Value: n})
			}
		case "category":
			f = append(f, Predicate{Field: FieldCategory, Op: OpEquals, Value: value})
		case "institution":
			f = append(f, Predicate{Field: FieldInstitution, Op: OpEquals, Value: value})
		}
	}
	return f
}

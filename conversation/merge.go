package conversation

import (
	"slices"

	"github.com/poiesic/fabmatch/core"
)

// Merge combines the current turn's conditions with the previous turn's
// according to the follow-up kind. Query text and keywords always come from
// current. Neither input is modified.
func Merge(current, previous *core.Conditions, f FollowUp) *core.Conditions {
	if !f.IsFollowUp || previous == nil {
		return current.Clone()
	}

	merged := previous.Clone()
	cur := current.Clone()
	merged.Original = cur.Original
	merged.Normalized = cur.Normalized
	merged.Keywords = cur.Keywords

	switch f.Kind {
	case KindAddCondition:
		merged.WaferSizes = union(merged.WaferSizes, cur.WaferSizes)
		merged.Materials = union(merged.Materials, cur.Materials)
		merged.Categories = union(merged.Categories, cur.Categories)
		merged.MappedCategories = union(merged.MappedCategories, cur.MappedCategories)
		merged.Institutions = union(merged.Institutions, cur.Institutions)
		overrideBounds(merged, cur)
	case KindComparison:
		if len(cur.Categories) > 0 {
			merged.Categories = cur.Categories
		}
	default:
		// condition_replace, condition_change, reference_previous,
		// similar_request and anything else: present fields win.
		override(merged, cur)
	}
	return merged
}

func override(dst, src *core.Conditions) {
	if len(src.WaferSizes) > 0 {
		dst.WaferSizes = src.WaferSizes
	}
	if len(src.Materials) > 0 {
		dst.Materials = src.Materials
	}
	if len(src.Categories) > 0 {
		dst.Categories = src.Categories
	}
	if len(src.MappedCategories) > 0 {
		dst.MappedCategories = src.MappedCategories
	}
	if len(src.Institutions) > 0 {
		dst.Institutions = src.Institutions
	}
	overrideBounds(dst, src)
}

func overrideBounds(dst, src *core.Conditions) {
	if src.TempMin != nil {
		dst.TempMin = src.TempMin
	}
	if src.TempMax != nil {
		dst.TempMax = src.TempMax
	}
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

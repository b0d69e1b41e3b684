package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/fabmatch/core"
)

// Check names recorded on candidates.
const (
	CheckWaferSize   = "wafer_size"
	CheckTemperature = "temperature"
	CheckMaterials   = "materials"
	CheckInstitution = "institution"
	CheckCategory    = "category"
)

func pass(name string) core.CheckResult {
	return core.CheckResult{Name: name, Passed: true}
}

func fail(name, format string, args ...any) core.CheckResult {
	return core.CheckResult{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// WaferSize passes when nothing is requested or any requested size is supported.
func WaferSize(e *core.Equipment, sizes []string) core.CheckResult {
	if len(sizes) == 0 {
		return pass(CheckWaferSize)
	}
	if len(e.WaferSizes) == 0 {
		return fail(CheckWaferSize, "웨이퍼 사이즈 정보 없음")
	}
	for _, size := range sizes {
		if slices.Contains(e.WaferSizes, size) {
			return pass(CheckWaferSize)
		}
	}
	return fail(CheckWaferSize, "요청 사이즈 %v 미지원 (지원: %v)", sizes, e.WaferSizes)
}

// Temperature passes when the equipment range overlaps the requested bounds.
// Equipment without a known range fails any temperature request.
func Temperature(e *core.Equipment, minT, maxT *float64) core.CheckResult {
	if minT == nil && maxT == nil {
		return pass(CheckTemperature)
	}
	if !e.HasTemperature() {
		return fail(CheckTemperature, "온도 정보 없음")
	}
	if minT != nil && *e.TempMax < *minT {
		return fail(CheckTemperature, "최대 %g℃까지만 지원 (요청: %g℃ 이상)", *e.TempMax, *minT)
	}
	if maxT != nil && *e.TempMin > *maxT {
		return fail(CheckTemperature, "최소 %g℃부터 지원 (요청: %g℃ 이하)", *e.TempMin, *maxT)
	}
	return pass(CheckTemperature)
}

// Materials passes when nothing is requested, the equipment lists no
// materials, or any requested material matches case-insensitively.
func Materials(e *core.Equipment, materials []string) core.CheckResult {
	if len(materials) == 0 || len(e.Materials) == 0 {
		return pass(CheckMaterials)
	}
	if hasMaterial(e, materials) {
		return pass(CheckMaterials)
	}
	return fail(CheckMaterials, "요청 재료 %v 미지원", materials)
}

func hasMaterial(e *core.Equipment, materials []string) bool {
	for _, want := range materials {
		if slices.ContainsFunc(e.Materials, func(m string) bool { return strings.EqualFold(m, want) }) {
			return true
		}
	}
	return false
}

// Institution passes when any requested institution is a substring of the
// equipment's institution.
func Institution(e *core.Equipment, institutions []string) core.CheckResult {
	if len(institutions) == 0 || hasInstitution(e, institutions) {
		return pass(CheckInstitution)
	}
	return fail(CheckInstitution, "요청 기관 아님 (현재: %s)", e.Institution)
}

func hasInstitution(e *core.Equipment, institutions []string) bool {
	return slices.ContainsFunc(institutions, func(inst string) bool {
		return strings.Contains(e.Institution, inst)
	})
}

// Category always passes. The reason notes a mismatch for display only.
func Category(e *core.Equipment, categories, mapped []string) core.CheckResult {
	result := pass(CheckCategory)
	if (len(categories) > 0 || len(mapped) > 0) && !categoryMatches(e, categories, mapped) {
		result.Reason = "요청 카테고리와 다름"
	}
	return result
}

// categoryMatches reports whether the equipment category is one of the
// requested categories, or a mapped category names its category or appears
// in its name.
func categoryMatches(e *core.Equipment, categories, mapped []string) bool {
	if slices.Contains(categories, e.Category) {
		return true
	}
	name := strings.ToUpper(e.Name + " " + e.NameEN)
	for _, cat := range mapped {
		if cat == "" {
			continue
		}
		if strings.EqualFold(cat, e.Category) || strings.Contains(name, strings.ToUpper(cat)) {
			return true
		}
	}
	return false
}

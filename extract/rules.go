package extract

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
)

// Rules is the facet dictionary loaded from filter_rules.json.
type Rules struct {
	WaferSizes   WaferRules        `json:"wafer_sizes"`
	Temperature  TemperatureRules  `json:"temperature"`
	Materials    map[string]string `json:"materials"`
	Categories   map[string]string `json:"categories"`
	Institutions map[string]string `json:"institutions"`
}

// WaferRules lists the accepted wafer sizes and the metric aliases.
type WaferRules struct {
	ValidSizes []string          `json:"valid_sizes"`
	MMToInch   map[string]string `json:"mm_to_inch"`
}

// TemperatureRules holds the thresholds implied by 고온 and 저온.
type TemperatureRules struct {
	HighTempThreshold *float64 `json:"high_temp_threshold"`
	LowTempThreshold  *float64 `json:"low_temp_threshold"`
}

const (
	defaultHighTemp = 500
	defaultLowTemp  = 200
)

// DefaultRules returns the built-in rules used when no rules file is available.
func DefaultRules() *Rules {
	high, low := float64(defaultHighTemp), float64(defaultLowTemp)
	return &Rules{
		WaferSizes: WaferRules{
			ValidSizes: []string{"2 inch", "3 inch", "4 inch", "6 inch", "8 inch", "12 inch"},
			MMToInch: map[string]string{
				"50mm": "2 inch", "75mm": "3 inch", "100mm": "4 inch",
				"150mm": "6 inch", "200mm": "8 inch", "300mm": "12 inch",
			},
		},
		Temperature: TemperatureRules{HighTempThreshold: &high, LowTempThreshold: &low},
		Materials: map[string]string{
			"si": "Si", "실리콘": "Si",
			"gan": "GaN", "sic": "SiC", "gaas": "GaAs",
			"sapphire": "Sapphire", "사파이어": "Sapphire",
			"glass": "Glass", "유리": "Glass",
			"quartz": "Quartz", "석영": "Quartz",
			"알루미늄": "Al", "ito": "ITO",
		},
		Categories: map[string]string{
			"rta": "열처리", "열처리": "열처리", "anneal": "열처리", "확산로": "열처리", "furnace": "열처리",
			"식각": "식각", "etch": "식각", "rie": "식각",
			"증착": "증착", "cvd": "증착", "ald": "증착", "sputter": "증착", "스퍼터": "증착", "evaporator": "증착",
			"노광": "노광", "lithography": "노광", "aligner": "노광",
			"sem": "분석", "xrd": "분석", "분석": "분석",
			"세정": "세정",
		},
		Institutions: map[string]string{
			"나노종합기술원": "나노종합기술원", "NNFC": "나노종합기술원",
			"한국나노기술원": "한국나노기술원", "KANC": "한국나노기술원",
			"반도체공동연구소": "서울대 반도체공동연구소", "ISRC": "서울대 반도체공동연구소",
		},
	}
}

// LoadRules reads a rules file. Sections missing from the file fall back to
// the built-in defaults individually.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Rules
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRules, path, err)
	}
	r.fillDefaults()
	return &r, nil
}

func (r *Rules) fillDefaults() {
	def := DefaultRules()
	if len(r.WaferSizes.ValidSizes) == 0 {
		r.WaferSizes.ValidSizes = def.WaferSizes.ValidSizes
	}
	if len(r.WaferSizes.MMToInch) == 0 {
		r.WaferSizes.MMToInch = def.WaferSizes.MMToInch
	}
	if r.Temperature.HighTempThreshold == nil {
		r.Temperature.HighTempThreshold = def.Temperature.HighTempThreshold
	}
	if r.Temperature.LowTempThreshold == nil {
		r.Temperature.LowTempThreshold = def.Temperature.LowTempThreshold
	}
	if r.Materials == nil {
		r.Materials = def.Materials
	}
	if r.Categories == nil {
		r.Categories = def.Categories
	}
	if r.Institutions == nil {
		r.Institutions = def.Institutions
	}
}

// sortedKeys gives dictionary lookups a stable order.
func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

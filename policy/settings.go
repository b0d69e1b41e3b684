package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known setting keys.
const (
	KeyMaintenanceExclude = "maintenance_exclude"
	KeyExternalVisible    = "external_visible"
	KeyMinRAGScore        = "min_rag_score"
	KeyMaxRecommendations = "max_recommendations"
)

// Setting value types.
const (
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeString  = "string"
)

// Setting is one entry of policy_settings.json.
type Setting struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Settings is a read-only set of typed policy values keyed by name.
type Settings map[string]Setting

// Has reports whether key is configured.
func (s Settings) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Bool returns a boolean setting, or def when absent.
func (s Settings) Bool(key string, def bool) bool {
	setting, ok := s[key]
	if !ok {
		return def
	}
	switch v := setting.Value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return def
}

// Int returns an integer setting, or def when absent or unparseable.
func (s Settings) Int(key string, def int) int {
	setting, ok := s[key]
	if !ok {
		return def
	}
	switch v := setting.Value.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float returns a float setting, or def when absent or unparseable.
func (s Settings) Float(key string, def float64) float64 {
	setting, ok := s[key]
	if !ok {
		return def
	}
	switch v := setting.Value.(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// String returns a setting formatted as text, or def when absent.
func (s Settings) String(key string, def string) string {
	setting, ok := s[key]
	if !ok {
		return def
	}
	if v, ok := setting.Value.(string); ok {
		return v
	}
	return fmt.Sprint(setting.Value)
}

// Typed returns the value converted according to its declared type.
func (s Settings) Typed(key string) any {
	setting, ok := s[key]
	if !ok {
		return nil
	}
	switch setting.Type {
	case TypeBoolean:
		return s.Bool(key, false)
	case TypeInteger:
		return s.Int(key, 0)
	case TypeFloat:
		return s.Float(key, 0)
	}
	return s.String(key, "")
}

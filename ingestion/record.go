package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/extract"
)

// Record is one equipment entry of the JSON data file.
type Record struct {
	ID             string   `json:"equipment_id"`
	Name           string   `json:"name"`
	NameEN         string   `json:"name_en,omitempty"`
	Category       string   `json:"category"`
	Part           string   `json:"part,omitempty"`
	WaferSizes     []string `json:"wafer_sizes,omitempty"`
	Materials      []string `json:"materials,omitempty"`
	TempMin        *float64 `json:"temp_min,omitempty"`
	TempMax        *float64 `json:"temp_max,omitempty"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Institution    string   `json:"institution"`
	Location       string   `json:"location,omitempty"`
	ReservationURL string   `json:"reservation_url,omitempty"`
	Maintenance    bool     `json:"maintenance,omitempty"`
	External       bool     `json:"external,omitempty"`
}

var (
	inchSize = regexp.MustCompile(`^(\d+)\s*(?:inch|인치|")$`)
	mmSize   = regexp.MustCompile(`^(\d+)\s*mm$`)
)

// NormalizeWaferSize converts the spellings found in source data ("6인치",
// `6"`, "150mm", "6inch") to the canonical "<n> inch" form. Unrecognized
// values are returned trimmed and unchanged.
func NormalizeWaferSize(size string) string {
	s := strings.ToLower(strings.TrimSpace(size))
	if m := inchSize.FindStringSubmatch(s); m != nil {
		return m[1] + " inch"
	}
	if m := mmSize.FindStringSubmatch(s); m != nil {
		if inch, ok := extract.DefaultRules().WaferSizes.MMToInch[m[1]+"mm"]; ok {
			return inch
		}
	}
	return strings.TrimSpace(size)
}

// Equipment converts the record to a validated domain value.
func (r *Record) Equipment() (*core.Equipment, error) {
	e := &core.Equipment{
		ID:             strings.TrimSpace(r.ID),
		Name:           strings.TrimSpace(r.Name),
		NameEN:         strings.TrimSpace(r.NameEN),
		Category:       strings.TrimSpace(r.Category),
		Part:           strings.TrimSpace(r.Part),
		Materials:      compact(r.Materials),
		TempMin:        r.TempMin,
		TempMax:        r.TempMax,
		Description:    strings.TrimSpace(r.Description),
		Tags:           compact(r.Tags),
		Institution:    strings.TrimSpace(r.Institution),
		Location:       strings.TrimSpace(r.Location),
		ReservationURL: strings.TrimSpace(r.ReservationURL),
		Maintenance:    r.Maintenance,
		External:       r.External,
	}
	for _, size := range r.WaferSizes {
		if size = NormalizeWaferSize(size); size != "" {
			e.WaferSizes = append(e.WaferSizes, size)
		}
	}
	e.WaferSizes = compact(e.WaferSizes)

	if err := core.ValidateEquipment(e); err != nil {
		return nil, err
	}
	return e, nil
}

// compact trims entries and drops blanks and repeats, keeping order.
func compact(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Decode reads a JSON array of records and converts each to Equipment.
// The first invalid record aborts decoding.
func Decode(r io.Reader) ([]*core.Equipment, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDataFile, err)
	}

	items := make([]*core.Equipment, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i := range records {
		e, err := records[i].Equipment()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = true
		items = append(items, e)
	}
	return items, nil
}

// ReadFile decodes the data file at path. The returned fingerprint is a
// digest of the raw file content.
func ReadFile(path string) ([]*core.Equipment, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	items, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return items, core.Digest(string(raw)), nil
}

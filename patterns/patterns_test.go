package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		table, err := Compile([]Spec{
			{Label: "first", Pattern: "장비"},
			{Label: "second", Pattern: "장"},
		})
		require.NoError(t, err)
		rule, ok := table.First("RTA 장비")
		require.True(t, ok)
		assert.Equal(t, "first", rule.Label)
	})

	t.Run("invalid regexp", func(t *testing.T) {
		_, err := Compile([]Spec{{Label: "bad", Pattern: "(unclosed"}})
		assert.Error(t, err)
	})

	t.Run("empty label", func(t *testing.T) {
		_, err := Compile([]Spec{{Pattern: "x"}})
		assert.ErrorIs(t, err, ErrEmptyPattern)
	})

	t.Run("must compile panics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustCompile([]Spec{{Label: "bad", Pattern: "[z-a]"}})
		})
	})
}

func TestTable_Labels(t *testing.T) {
	table := MustCompile([]Spec{
		{Label: "negative", Pattern: "제외"},
		{Label: "negative", Pattern: "말고"},
		{Label: "compound", Pattern: "동시에"},
	})

	assert.Equal(t, []string{"negative"}, table.Labels("GaN 말고 제외"))
	assert.Equal(t, []string{"negative", "compound"}, table.Labels("제외하고 동시에"))
	assert.Nil(t, table.Labels("RTA 장비"))

	_, ok := table.First("RTA 장비")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := `quick:
  - label: negative
    pattern: '제외'
followup:
  - label: condition_change
    pattern: '^(그럼|그러면)'
    confidence: 0.8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Quick, 1)
	require.Len(t, f.FollowUp, 1)
	assert.Equal(t, "condition_change", f.FollowUp[0].Label)
	assert.InDelta(t, 0.8, f.FollowUp[0].Confidence, 1e-9)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

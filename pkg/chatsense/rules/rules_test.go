package rules

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/chatsense/pkg/chatsense/internalerr"
)

func TestDefaultOrder(t *testing.T) {
	reg := Default()

	var names []string
	for _, r := range reg.Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{URL, AtUser, AdditionalWhiteSpace, HashTag}, names)
	assert.Equal(t, []string{URL, AtUser, HashTag}, reg.CaptureNames())
}

func TestDefaultHashTagCapturesGroup(t *testing.T) {
	rule, ok := Default().Lookup(HashTag)
	require.True(t, ok)
	assert.Equal(t, 1, rule.Group)
	assert.Equal(t, "${1}", rule.Replacement)
}

func TestLoadDuplicateName(t *testing.T) {
	_, err := Load([]Spec{
		{Name: "a", Pattern: "a"},
		{Name: "a", Pattern: "b"},
	})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 1, cfgErr.Index)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	assert.ErrorIs(t, err, internalerr.ErrDuplicate)
}

func TestLoadInvalidPattern(t *testing.T) {
	_, err := Load([]Spec{{Name: "broken", Pattern: "(unclosed"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadEmptyName(t *testing.T) {
	_, err := Load([]Spec{{Name: "  ", Pattern: "x"}})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestLoadGroupOutOfRange(t *testing.T) {
	_, err := Load([]Spec{{Name: "g", Pattern: "a(b)", Capture: true, Group: 2}})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestRulesReturnsCopy(t *testing.T) {
	reg := Default()
	rs := reg.Rules()
	rs[0].Name = "mutated"

	assert.Equal(t, URL, reg.Rules()[0].Name)
}

func TestEmojiSpecCompiles(t *testing.T) {
	reg, err := Load(append(DefaultSpecs(), EmojiSpec()))
	require.NoError(t, err)
	assert.Equal(t, 5, reg.Len())
	assert.Contains(t, reg.CaptureNames(), Emoji)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - name: at_user
    pattern: '@[A-Za-z0-9]+'
    replacement: at_user
    capture: true
  - name: hash_tag
    pattern: '#(\S+)'
    replacement: '${1}'
    capture: true
    group: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{AtUser, HashTag}, reg.CaptureNames())
}

func TestParseYAMLMalformed(t *testing.T) {
	_, err := ParseYAML([]byte("rules: [unclosed\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	specs := append(DefaultSpecs(), EmojiSpec())

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, specs))

	back, err := ParseSpecsYAML(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, specs, back)

	reg, err := Load(back)
	require.NoError(t, err)
	assert.Equal(t, []string{URL, AtUser, HashTag, Emoji}, reg.CaptureNames())
}

func TestSpecsRoundTrip(t *testing.T) {
	assert.Equal(t, DefaultSpecs(), Default().Specs())
}

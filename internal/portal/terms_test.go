package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTermKnownCodes(t *testing.T) {
	seen := make(map[string]bool)

	for _, term := range Terms() {
		parsed, err := ParseTerm(string(term))
		require.NoError(t, err)
		assert.Equal(t, term, parsed)

		label := parsed.Label()
		assert.NotEmpty(t, label, "term %s must map to a label", term)
		assert.False(t, seen[label], "label %q mapped by more than one term", label)
		seen[label] = true
	}

	assert.Len(t, seen, 8)
}

func TestParseTermUnknownCode(t *testing.T) {
	for _, raw := range []string{"", "V_I", "ii_i", "I-I", "II_III"} {
		_, err := ParseTerm(raw)
		assert.Error(t, err, "code %q must not parse", raw)
	}
}

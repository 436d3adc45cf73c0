package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps_KnownAlias(t *testing.T) {
	assert.True(t, Overlaps("Abu Dhabi", "Yas Marina"))
	assert.True(t, Overlaps("YasMarina", "abu dhabi"))
}

func TestOverlaps_NoRelation(t *testing.T) {
	assert.False(t, Overlaps("Monza", "Suzuka"))
}

func TestFold_StripsDiacritics(t *testing.T) {
	assert.Equal(t, "sao paulo", Fold("São Paulo"))
}

func TestExpand_UnknownTokenReturnsItself(t *testing.T) {
	exp := Expand("Nonexistent Venue")
	assert.Contains(t, exp, "nonexistent venue")
}

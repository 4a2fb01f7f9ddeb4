package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersonID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"sanity document id", "person-7f3a", false},
		{"empty", "", true},
		{"stringified null", "null", true},
		{"stringified undefined", "undefined", true},
		{"edge separator", "a>b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewPersonID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestEdgeKeyIsStableForPair(t *testing.T) {
	a := NewEdgeKey("A", "B")
	b := NewEdgeKey("A", "B")

	assert.Equal(t, a, b)
	assert.Equal(t, EdgeKey("A->B"), a)
	assert.NotEqual(t, a, NewEdgeKey("B", "A"))
}

func TestEdgeKeyKeepsHyphenatedIDsApart(t *testing.T) {
	assert.NotEqual(t, NewEdgeKey("a-b", "c"), NewEdgeKey("a", "b-c"))
	assert.Equal(t, EdgeKey("a-b->c"), NewEdgeKey("a-b", "c"))
	assert.Equal(t, EdgeKey("a->b-c"), NewEdgeKey("a", "b-c"))
}

func TestParseSex(t *testing.T) {
	assert.Equal(t, SexMale, ParseSex("male"))
	assert.Equal(t, SexFemale, ParseSex("female"))
	assert.Equal(t, Sex(""), ParseSex("other"))
	assert.Equal(t, SexFemale, SexMale.Opposite())
	assert.Equal(t, Sex(""), Sex("").Opposite())
}

func TestGenerationIsValid(t *testing.T) {
	assert.True(t, RootGeneration.IsValid())
	assert.True(t, Generation(4).IsValid())
	assert.False(t, Generation(0).IsValid())
	assert.False(t, Generation(-1).IsValid())
}

func TestNewPosition(t *testing.T) {
	p, err := NewPosition(10, 20)
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.X())
	assert.Equal(t, 20.0, p.Y())

	_, err = NewPosition(math.NaN(), 0)
	assert.Error(t, err)
	_, err = NewPosition(0, math.Inf(1))
	assert.Error(t, err)
}

func TestPositionEquals(t *testing.T) {
	a, _ := NewPosition(0, 0)
	b, _ := NewPosition(1e-12, 0)
	c, _ := NewPosition(170, 0)

	assert.True(t, Origin().Equals(a))
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

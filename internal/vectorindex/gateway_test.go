package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointID_DeterministicPerURLAndName(t *testing.T) {
	a := PointID("http://example.com", "search")
	b := PointID("http://example.com", "search")
	c := PointID("http://example.com", "fetch")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPointID_DiffersByURL(t *testing.T) {
	a := PointID("http://one.example.com", "search")
	b := PointID("http://two.example.com", "search")
	assert.NotEqual(t, a, b)
}

func TestMarshalInputSchema_RendersJSON(t *testing.T) {
	schema := map[string]any{"type": "object", "properties": map[string]any{"q": map[string]any{"type": "string"}}}
	out := MarshalInputSchema(schema)
	assert.Contains(t, out, `"type":"object"`)
}

func TestMarshalInputSchema_FallsBackOnUnmarshalable(t *testing.T) {
	out := MarshalInputSchema(make(chan int))
	assert.Equal(t, "{}", out)
}

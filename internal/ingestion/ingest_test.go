package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-scheduler/internal/vectorindex"
)

type fakeSession struct {
	tools []mcp.Tool
	err   error
}

func (f *fakeSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return f.tools, f.err
}

type fakeEmbedder struct {
	failFor map[string]bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failFor[text] {
		return nil, errors.New("embedding failed")
	}
	return []float32{1, 2, 3}, nil
}

type fakeIndexer struct {
	ensureDim int
	ensureErr error
	upserted  []vectorindex.Tool
	upsertErr error
}

func (f *fakeIndexer) EnsureCollection(ctx context.Context, dim int) error {
	f.ensureDim = dim
	return f.ensureErr
}

func (f *fakeIndexer) Upsert(ctx context.Context, tools []vectorindex.Tool) error {
	f.upserted = tools
	return f.upsertErr
}

func TestRun_EmptyToolList(t *testing.T) {
	idx := &fakeIndexer{}
	p := New(&fakeEmbedder{}, idx)

	err := p.Run(context.Background(), &fakeSession{tools: nil}, "http://a")
	require.NoError(t, err)
	assert.Nil(t, idx.upserted, "no tools means no upsert")
}

func TestRun_ListToolsFailureAborts(t *testing.T) {
	p := New(&fakeEmbedder{}, &fakeIndexer{})

	err := p.Run(context.Background(), &fakeSession{err: errors.New("boom")}, "http://a")
	assert.Error(t, err)
}

func TestRun_SkipsIndividualEmbeddingFailures(t *testing.T) {
	idx := &fakeIndexer{}
	embed := &fakeEmbedder{failFor: map[string]bool{"broken": true}}
	p := New(embed, idx)

	session := &fakeSession{tools: []mcp.Tool{
		{Name: "first"},
		{Name: "broken"},
		{Name: "third"},
	}}

	err := p.Run(context.Background(), session, "http://a")
	require.NoError(t, err)
	require.Len(t, idx.upserted, 2, "the tool whose embedding failed is skipped, not fatal")

	var names []string
	for _, pt := range idx.upserted {
		names = append(names, pt.Name)
	}
	assert.ElementsMatch(t, []string{"first", "third"}, names)
}

func TestRun_FirstToolEmbedFailureAborts(t *testing.T) {
	embed := &fakeEmbedder{failFor: map[string]bool{"only": true}}
	p := New(embed, &fakeIndexer{})

	session := &fakeSession{tools: []mcp.Tool{{Name: "only"}}}

	err := p.Run(context.Background(), session, "http://a")
	assert.Error(t, err, "the first tool sets the collection dimension and must succeed")
}

func TestRun_EnsureCollectionUsesFirstVectorDimension(t *testing.T) {
	idx := &fakeIndexer{}
	p := New(&fakeEmbedder{}, idx)

	session := &fakeSession{tools: []mcp.Tool{{Name: "a"}}}
	require.NoError(t, p.Run(context.Background(), session, "http://a"))
	assert.Equal(t, 3, idx.ensureDim)
}

package ontology

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
)

func loadFixture(t *testing.T) *Graph {
	t.Helper()
	g, err := Load(filepath.Join("testdata", "ontology.yaml"))
	require.NoError(t, err)
	return g
}

func TestLoadFixture(t *testing.T) {
	g := loadFixture(t)
	assert.Equal(t, "1.0.0", g.Version())
	assert.Len(t, g.Layers(), ir.LayerCount)
	assert.Len(t, g.Nodes(), 11)
}

func TestNodeLookup(t *testing.T) {
	g := loadFixture(t)

	mutate, ok := g.Node("mutate")
	require.True(t, ok)
	assert.True(t, mutate.Mutating)
	assert.True(t, mutate.RequiresCheckpoint)
	assert.Equal(t, ir.RiskHigh, mutate.Risk)
	assert.Equal(t, "execution", mutate.Layer)

	idx, ok := g.LayerIndex("safety")
	require.True(t, ok)
	assert.Equal(t, 5, idx)

	_, ok = g.Node("teleport")
	assert.False(t, ok)
}

func TestRequiresNeighbors(t *testing.T) {
	g := loadFixture(t)

	assert.Equal(t, []string{"checkpoint"}, g.Requires("mutate"))
	assert.ElementsMatch(t, []string{"mutate", "overwrite", "send"}, g.RequiredBy("checkpoint"))
	assert.Empty(t, g.Requires("retrieve"))
}

func TestSoftRequiresIsKeptApartFromRequires(t *testing.T) {
	g := loadFixture(t)

	// detect has only a soft_requires edge to observe. The hard-dependency
	// surface must not report it.
	assert.Empty(t, g.Requires("detect"))
	assert.Equal(t, []string{"observe"}, g.SoftRequires("detect"))
	assert.Empty(t, g.RequiredBy("observe"))
}

func TestPrecedes(t *testing.T) {
	g := loadFixture(t)
	assert.Equal(t, []string{"plan"}, g.Precedes("retrieve"))
	assert.Equal(t, []string{"retrieve"}, g.PrecededBy("plan"))
}

func TestSymmetricRelations(t *testing.T) {
	g := loadFixture(t)

	// Declared as mutate -> overwrite; both directions must answer.
	assert.Equal(t, []string{"overwrite"}, g.ConflictsWith("mutate"))
	assert.Equal(t, []string{"mutate"}, g.ConflictsWith("overwrite"))

	assert.Equal(t, []string{"mutate"}, g.Alternatives("overwrite"))
	assert.Equal(t, []string{"overwrite"}, g.Alternatives("mutate"))
}

func TestSpecializes(t *testing.T) {
	g := loadFixture(t)
	assert.Equal(t, []string{"mutate"}, g.Generalizes("overwrite"))
	assert.Equal(t, []string{"overwrite"}, g.Specializations("mutate"))
}

func TestNodesInLayer(t *testing.T) {
	g := loadFixture(t)

	assert.Equal(t, []string{"execute", "mutate", "overwrite"}, g.NodesInLayer("execution"))
	assert.Empty(t, g.NodesInLayer("nonexistent"))
}

func TestCheckpointRequired(t *testing.T) {
	g := loadFixture(t)
	assert.Equal(t, []string{"mutate", "overwrite", "send"}, g.CheckpointRequired())

	mutating := g.NodesWhere(func(n ir.CapabilityNode) bool { return n.Mutating })
	ids := make([]string, len(mutating))
	for i, n := range mutating {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"mutate", "overwrite", "send"}, ids)
}

func TestSchemaFragment(t *testing.T) {
	g := loadFixture(t)
	frag, ok := g.SchemaFragment("search_results")
	require.True(t, ok)
	assert.Equal(t, "array", frag.Kind)

	_, ok = g.SchemaFragment("missing")
	assert.False(t, ok)
}

func TestLoadMissingSource(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "does_not_exist.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.yaml")
	link := filepath.Join(dir, "link.yaml")
	require.NoError(t, os.WriteFile(target, []byte("meta:\n  version: x\n"), 0o644))
	require.NoError(t, os.Symlink(target, link))

	_, err := Load(link)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbolic link")
}

func TestLoadRejectsOversized(t *testing.T) {
	_, err := LoadBytes("big.yaml", make([]byte, MaxSourceBytes+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ceiling")
}

func TestLoadRejectsBadShape(t *testing.T) {
	src := `
meta:
  version: "1.0.0"
layers: [a, b, c, d, e, f, g, h, i]
nodes:
  - id: x
    layer: a
    risk: catastrophic
edges: []
`
	_, err := LoadBytes("bad.yaml", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape validation failed")
}

func TestLoadRejectsWrongLayerCount(t *testing.T) {
	src := `
meta:
  version: "1.0.0"
layers: [a, b]
nodes: []
edges: []
`
	_, err := LoadBytes("layers.yaml", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 9 layers")
}

func TestLoadRejectsUnknownEdgeEndpoint(t *testing.T) {
	src := `
meta:
  version: "1.0.0"
layers: [a, b, c, d, e, f, g, h, i]
nodes:
  - id: x
    layer: a
    risk: low
edges:
  - { from: x, to: ghost, type: requires }
`
	_, err := LoadBytes("edge.yaml", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node "ghost"`)
}

func TestLoadRejectsDuplicateNode(t *testing.T) {
	src := `
meta:
  version: "1.0.0"
layers: [a, b, c, d, e, f, g, h, i]
nodes:
  - { id: x, layer: a, risk: low }
  - { id: x, layer: b, risk: low }
edges: []
`
	_, err := LoadBytes("dup.yaml", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestQueriesReturnCopies(t *testing.T) {
	g := loadFixture(t)
	first := g.Requires("mutate")
	first[0] = "tampered"
	assert.Equal(t, []string{"checkpoint"}, g.Requires("mutate"),
		"mutating a returned slice must not affect the graph")
}

func TestLoadErrorMentionsPath(t *testing.T) {
	_, err := LoadBytes("some/where.yaml", []byte("{"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "some/where.yaml"))
}

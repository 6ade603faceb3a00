package ontology

import (
	"fmt"
	"sort"

	"github.com/roach88/warden/internal/ir"
)

// Graph is the loaded capability graph. All fields are populated at load
// time and never mutated afterwards; every method is safe for concurrent
// use without locking.
type Graph struct {
	version string
	layers  []string
	nodes   map[string]ir.CapabilityNode
	order   []string // node ids, sorted, for deterministic iteration
	schemas map[string]*ir.Schema

	// Adjacency indexes, one pair per edge kind, built once at load.
	bySource map[ir.EdgeKind]map[string][]string
	byTarget map[ir.EdgeKind]map[string][]string
}

func buildGraph(path string, doc *document) (*Graph, error) {
	if len(doc.Layers) != ir.LayerCount {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("expected exactly %d layers, got %d", ir.LayerCount, len(doc.Layers))}
	}
	layerIndex := make(map[string]int, len(doc.Layers))
	for i, layer := range doc.Layers {
		if _, dup := layerIndex[layer]; dup {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("duplicate layer %q", layer)}
		}
		layerIndex[layer] = i
	}

	g := &Graph{
		version:  doc.Meta.Version,
		layers:   append([]string(nil), doc.Layers...),
		nodes:    make(map[string]ir.CapabilityNode, len(doc.Nodes)),
		schemas:  doc.Schemas,
		bySource: make(map[ir.EdgeKind]map[string][]string),
		byTarget: make(map[ir.EdgeKind]map[string][]string),
	}
	if g.schemas == nil {
		g.schemas = map[string]*ir.Schema{}
	}

	for _, n := range doc.Nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		idx, ok := layerIndex[n.Layer]
		if !ok {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("node %q references undefined layer %q", n.ID, n.Layer)}
		}
		risk := ir.RiskLevel(n.Risk)
		if !ir.ValidRiskLevels[risk] {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("node %q has invalid risk %q", n.ID, n.Risk)}
		}
		g.nodes[n.ID] = ir.CapabilityNode{
			ID:                 n.ID,
			Layer:              n.Layer,
			LayerIndex:         idx,
			Risk:               risk,
			Mutating:           n.Mutating,
			RequiresCheckpoint: n.RequiresCheckpoint,
			RequiresApproval:   n.RequiresApproval,
			Description:        n.Description,
			InputSchema:        n.InputSchema,
			OutputSchema:       n.OutputSchema,
		}
		g.order = append(g.order, n.ID)
	}
	sort.Strings(g.order)

	for _, e := range doc.Edges {
		kind := ir.EdgeKind(e.Type)
		if !ir.ValidEdgeKinds[kind] {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("edge %s->%s has invalid kind %q", e.From, e.To, e.Type)}
		}
		if _, ok := g.nodes[e.From]; !ok {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("edge references unknown node %q", e.From)}
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("edge references unknown node %q", e.To)}
		}
		addEdge(g.bySource, kind, e.From, e.To)
		addEdge(g.byTarget, kind, e.To, e.From)
	}

	// Sorted, deduplicated neighbor lists keep every query deterministic.
	for _, index := range []map[ir.EdgeKind]map[string][]string{g.bySource, g.byTarget} {
		for _, m := range index {
			for k, list := range m {
				sort.Strings(list)
				m[k] = dedupSorted(list)
			}
		}
	}

	return g, nil
}

func addEdge(index map[ir.EdgeKind]map[string][]string, kind ir.EdgeKind, key, val string) {
	m := index[kind]
	if m == nil {
		m = make(map[string][]string)
		index[kind] = m
	}
	m[key] = append(m[key], val)
}

func dedupSorted(list []string) []string {
	out := list[:0]
	for i, s := range list {
		if i == 0 || s != list[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// Version returns the source document's meta.version.
func (g *Graph) Version() string { return g.version }

// Layers returns the ordered cognitive layer names.
func (g *Graph) Layers() []string {
	return append([]string(nil), g.layers...)
}

// LayerIndex returns a layer's position in the ordered layer list.
func (g *Graph) LayerIndex(layer string) (int, bool) {
	for i, l := range g.layers {
		if l == layer {
			return i, true
		}
	}
	return 0, false
}

// Node looks up a capability by id.
func (g *Graph) Node(id string) (ir.CapabilityNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every capability, sorted by id.
func (g *Graph) Nodes() []ir.CapabilityNode {
	out := make([]ir.CapabilityNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Requires returns the hard dependencies of id: every capability that must
// be present whenever id runs. soft_requires never appears here.
func (g *Graph) Requires(id string) []string {
	return g.neighbors(g.bySource, ir.EdgeRequires, id)
}

// RequiredBy returns the capabilities that hard-depend on id.
func (g *Graph) RequiredBy(id string) []string {
	return g.neighbors(g.byTarget, ir.EdgeRequires, id)
}

// SoftRequires returns the advisory dependencies of id. Callers must treat
// these as hints only; closure computation ignores them.
func (g *Graph) SoftRequires(id string) []string {
	return g.neighbors(g.bySource, ir.EdgeSoftRequires, id)
}

// Precedes returns the capabilities that id must run before.
func (g *Graph) Precedes(id string) []string {
	return g.neighbors(g.bySource, ir.EdgePrecedes, id)
}

// PrecededBy returns the capabilities that must run before id.
func (g *Graph) PrecededBy(id string) []string {
	return g.neighbors(g.byTarget, ir.EdgePrecedes, id)
}

// ConflictsWith returns every capability mutually exclusive with id.
// The relation is symmetric regardless of which direction the source
// document declared.
func (g *Graph) ConflictsWith(id string) []string {
	return g.symmetric(ir.EdgeConflictsWith, id)
}

// Alternatives returns the capabilities substitutable for id (symmetric).
func (g *Graph) Alternatives(id string) []string {
	return g.symmetric(ir.EdgeAlternativeTo, id)
}

// Generalizes returns the broader capabilities that id specializes.
func (g *Graph) Generalizes(id string) []string {
	return g.neighbors(g.bySource, ir.EdgeSpecializes, id)
}

// Specializations returns the narrower variants of id.
func (g *Graph) Specializations(id string) []string {
	return g.neighbors(g.byTarget, ir.EdgeSpecializes, id)
}

// NodesInLayer returns the ids of every capability in a layer, sorted.
func (g *Graph) NodesInLayer(layer string) []string {
	var out []string
	for _, id := range g.order {
		if g.nodes[id].Layer == layer {
			out = append(out, id)
		}
	}
	return out
}

// NodesWhere returns every capability matching the predicate, sorted by id.
func (g *Graph) NodesWhere(pred func(ir.CapabilityNode) bool) []ir.CapabilityNode {
	var out []ir.CapabilityNode
	for _, id := range g.order {
		if n := g.nodes[id]; pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// CheckpointRequired returns the ids of every capability whose execution
// requires a prior safety checkpoint.
func (g *Graph) CheckpointRequired() []string {
	var out []string
	for _, id := range g.order {
		if g.nodes[id].RequiresCheckpoint {
			out = append(out, id)
		}
	}
	return out
}

// SchemaFragment looks up a shared schema fragment by name.
func (g *Graph) SchemaFragment(name string) (*ir.Schema, bool) {
	s, ok := g.schemas[name]
	return s, ok
}

func (g *Graph) neighbors(index map[ir.EdgeKind]map[string][]string, kind ir.EdgeKind, id string) []string {
	m := index[kind]
	if m == nil {
		return nil
	}
	list := m[id]
	if len(list) == 0 {
		return nil
	}
	return append([]string(nil), list...)
}

func (g *Graph) symmetric(kind ir.EdgeKind, id string) []string {
	merged := append(g.neighbors(g.bySource, kind, id), g.neighbors(g.byTarget, kind, id)...)
	if len(merged) == 0 {
		return nil
	}
	sort.Strings(merged)
	return dedupSorted(merged)
}

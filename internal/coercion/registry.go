// Package coercion loads the registered (from-type, to-type) transform
// mappings consulted when a binding's resolved type mismatches what the
// consumer declares. A registry hit yields an advisory patch suggestion;
// a miss leaves the mismatch a plain error.
package coercion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/warden/internal/ir"
)

// MaxSourceBytes is the hard ceiling on a registry source document.
const MaxSourceBytes = 1 << 20

// Rule is one registered coercion.
type Rule struct {
	From    ir.Type
	To      ir.Type
	Mapping string // reference to the transform capability or mapping asset
}

// Registry indexes rules by canonical (from, to) type strings.
type Registry struct {
	rules map[[2]string]Rule
}

type document struct {
	Coercions []struct {
		From    string `yaml:"from"`
		To      string `yaml:"to"`
		Mapping string `yaml:"mapping"`
	} `yaml:"coercions"`
}

// Empty returns a registry with no rules. Lookups always miss.
func Empty() *Registry {
	return &Registry{rules: map[[2]string]Rule{}}
}

// Load reads a registry source from disk.
func Load(path string) (*Registry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("coercion registry %s: source not found", path)
		}
		return nil, fmt.Errorf("coercion registry %s: stat: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("coercion registry %s: source is a symbolic link, refusing to follow", path)
	}
	if info.Size() > MaxSourceBytes {
		return nil, fmt.Errorf("coercion registry %s: source exceeds %d byte ceiling", path, int64(MaxSourceBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coercion registry %s: read: %w", path, err)
	}
	return LoadBytes(path, data)
}

// LoadBytes parses a registry document from memory.
func LoadBytes(path string, data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("coercion registry %s: decode: %w", path, err)
	}

	reg := Empty()
	for i, c := range doc.Coercions {
		from, err := ir.ParseType(c.From)
		if err != nil {
			return nil, fmt.Errorf("coercion registry %s: coercions[%d].from: %w", path, i, err)
		}
		to, err := ir.ParseType(c.To)
		if err != nil {
			return nil, fmt.Errorf("coercion registry %s: coercions[%d].to: %w", path, i, err)
		}
		if c.Mapping == "" {
			return nil, fmt.Errorf("coercion registry %s: coercions[%d]: mapping is required", path, i)
		}
		key := [2]string{ir.TypeString(from), ir.TypeString(to)}
		if _, dup := reg.rules[key]; dup {
			return nil, fmt.Errorf("coercion registry %s: duplicate rule %s -> %s", path, key[0], key[1])
		}
		reg.rules[key] = Rule{From: from, To: to, Mapping: c.Mapping}
	}
	return reg, nil
}

// Lookup finds a rule converting from one type to another. Matching is on
// canonical type strings, so structurally equal types always hit.
func (r *Registry) Lookup(from, to ir.Type) (Rule, bool) {
	rule, ok := r.rules[[2]string{ir.TypeString(from), ir.TypeString(to)}]
	return rule, ok
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }

package ontology

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/warden/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// MaxSourceBytes is the hard ceiling on an ontology source document.
// Anything larger is rejected outright, never truncated.
const MaxSourceBytes = 10 << 20

// document mirrors the YAML source shape before graph construction.
type document struct {
	Meta struct {
		Version string `yaml:"version"`
	} `yaml:"meta"`
	Layers []string `yaml:"layers"`
	Nodes  []struct {
		ID                 string     `yaml:"id"`
		Layer              string     `yaml:"layer"`
		Risk               string     `yaml:"risk"`
		Mutating           bool       `yaml:"mutating"`
		RequiresCheckpoint bool       `yaml:"requires_checkpoint"`
		RequiresApproval   bool       `yaml:"requires_approval"`
		Description        string     `yaml:"description"`
		InputSchema        *ir.Schema `yaml:"input_schema"`
		OutputSchema       *ir.Schema `yaml:"output_schema"`
	} `yaml:"nodes"`
	Edges []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
		Type string `yaml:"type"`
	} `yaml:"edges"`
	Schemas map[string]*ir.Schema `yaml:"schemas"`
}

// LoadError is a fatal ontology load failure.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("ontology %s: %s", e.Path, e.Message)
}

// Load reads, shape-checks, and indexes an ontology source document.
//
// The source path is taken from explicit configuration; there is no
// process-wide cached resolution. A missing file, a symlink, or a document
// over MaxSourceBytes fails hard - the caller never receives a silently
// substituted or degraded graph.
func Load(path string) (*Graph, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: path, Message: "source not found"}
		}
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("stat: %v", err)}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, &LoadError{Path: path, Message: "source is a symbolic link, refusing to follow"}
	}
	if info.Size() > MaxSourceBytes {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("source exceeds %d byte ceiling (%d bytes)", int64(MaxSourceBytes), info.Size())}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("read: %v", err)}
	}

	return LoadBytes(path, data)
}

// LoadBytes parses and indexes an ontology document from memory.
// Exposed for tests and embedded fixtures; the same shape checks apply.
func LoadBytes(path string, data []byte) (*Graph, error) {
	if len(data) > MaxSourceBytes {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("source exceeds %d byte ceiling", int64(MaxSourceBytes))}
	}

	if err := validateShape(path, data); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("decode: %v", err)}
	}

	return buildGraph(path, &doc)
}

// validateShape unifies the extracted YAML with the embedded CUE schema.
// CUE reports every shape defect in one pass with positions, which beats
// re-implementing field-by-field checks by hand.
func validateShape(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("internal schema: %v", err)}
	}
	docSchema := schema.LookupPath(cue.ParsePath("#Document"))
	if err := docSchema.Err(); err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("internal schema: %v", err)}
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("parse: %v", err)}
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("parse: %v", err)}
	}

	unified := docSchema.Unify(value)
	if err := unified.Validate(); err != nil {
		msgs := ""
		for i, e := range cueerrors.Errors(err) {
			if i > 0 {
				msgs += "; "
			}
			msgs += e.Error()
		}
		return &LoadError{Path: path, Message: "shape validation failed: " + msgs}
	}
	return nil
}

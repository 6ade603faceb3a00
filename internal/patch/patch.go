// Package patch renders binding coercion suggestions as a textual patch
// against the workflow catalog source. Patches are advisory output for
// --emit-patch; nothing ever applies them automatically.
package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/roach88/warden/internal/binding"
	"github.com/roach88/warden/internal/catalog"
	"github.com/roach88/warden/internal/ir"
)

// Render builds a patch of the catalog source that inserts the suggested
// transform steps and rewrites the mismatched bindings to consume their
// output. Suggestions whose source location cannot be found are skipped;
// an empty string means nothing was renderable.
func Render(source []byte, cat *catalog.Catalog, suggestions []binding.Suggestion) string {
	modified := string(source)
	for _, s := range suggestions {
		next, ok := applySuggestion(modified, cat, s)
		if !ok {
			continue
		}
		modified = next
	}
	if modified == string(source) {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(source), modified, false)
	return dmp.PatchToText(dmp.PatchMake(string(source), diffs))
}

func applySuggestion(source string, cat *catalog.Catalog, s binding.Suggestion) (string, bool) {
	wf, ok := cat.Workflow(s.Location.Workflow)
	if !ok {
		return "", false
	}
	var step *ir.WorkflowStep
	for i := range wf.Steps {
		if wf.Steps[i].StoreAs == s.Location.Step {
			step = &wf.Steps[i]
			break
		}
	}
	if step == nil {
		return "", false
	}
	raw, ok := rawReference(step.Inputs, s.Location.Field)
	if !ok {
		return "", false
	}

	transformStore := s.Transform + "_out"
	replacement := fmt.Sprintf("${%s: %s}", transformStore, s.To)
	rewritten := strings.Replace(source, raw, replacement, 1)
	if rewritten == source {
		return "", false
	}
	return insertTransformStep(rewritten, step.StoreAs, s, raw, transformStore)
}

// rawReference finds the reference bound at a dotted field path, walking
// nested objects and list elements.
func rawReference(inputs map[string]ir.BindingValue, field string) (string, bool) {
	var walk func(bv ir.BindingValue, path string) (string, bool)
	walk = func(bv ir.BindingValue, path string) (string, bool) {
		switch v := bv.(type) {
		case ir.Reference:
			if path == field {
				return v.Raw, true
			}
		case ir.ObjectValue:
			for name, inner := range v {
				p := name
				if path != "" {
					p = path + "." + name
				}
				if raw, ok := walk(inner, p); ok {
					return raw, ok
				}
			}
		case ir.ListValue:
			for i, inner := range v {
				if raw, ok := walk(inner, fmt.Sprintf("%s[%d]", path, i)); ok {
					return raw, ok
				}
			}
		}
		return "", false
	}
	for name, bv := range inputs {
		if raw, ok := walk(bv, name); ok {
			return raw, ok
		}
	}
	return "", false
}

// insertTransformStep inserts a transform step list item directly before
// the consuming step's list item, matching its indentation.
func insertTransformStep(source, consumerStore string, s binding.Suggestion, raw, transformStore string) (string, bool) {
	lines := strings.Split(source, "\n")
	storeIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "store_as: "+consumerStore {
			storeIdx = i
			break
		}
	}
	if storeIdx < 0 {
		return "", false
	}

	// Walk back to the start of the consuming step's list item.
	itemIdx := -1
	for i := storeIdx; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "- ") {
			itemIdx = i
			break
		}
	}
	if itemIdx < 0 {
		return "", false
	}

	indent := lines[itemIdx][:len(lines[itemIdx])-len(strings.TrimLeft(lines[itemIdx], " "))]
	inner := indent + "  "
	block := []string{
		indent + "- capability: " + s.Transform,
		inner + "store_as: " + transformStore,
		inner + "input_bindings:",
		inner + "  value: " + fmt.Sprintf("%q", raw),
	}

	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:itemIdx]...)
	out = append(out, block...)
	out = append(out, lines[itemIdx:]...)
	return strings.Join(out, "\n"), true
}

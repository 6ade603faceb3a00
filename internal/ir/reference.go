package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadAnnotation marks reference parse failures caused by the type
// annotation rather than the producer/path shape. Callers route the two
// to different diagnostic codes.
var ErrBadAnnotation = errors.New("invalid type annotation")

// IsReferenceExpr reports whether a string literal is a ${...} expression.
func IsReferenceExpr(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") && len(s) > 3
}

// ParseReference parses a ${name}, ${name.path} or ${name.path: type}
// expression into a Reference. The leading segment names the producer
// (a step's store_as name or an external workflow input); the remaining
// dotted segments descend into the producer's output. The optional
// annotation after ":" declares the expected type in the compact grammar.
func ParseReference(raw string) (Reference, error) {
	if !IsReferenceExpr(raw) {
		return Reference{}, fmt.Errorf("not a binding reference: %q", raw)
	}
	body := raw[2 : len(raw)-1]

	var declared Type
	declaredText := ""
	if colon := strings.Index(body, ":"); colon >= 0 {
		declaredText = strings.TrimSpace(body[colon+1:])
		body = body[:colon]
		if declaredText == "" {
			return Reference{}, fmt.Errorf("reference %q: %w: annotation is empty", raw, ErrBadAnnotation)
		}
		t, err := ParseType(declaredText)
		if err != nil {
			return Reference{}, fmt.Errorf("reference %q: %w: %v", raw, ErrBadAnnotation, err)
		}
		declared = t
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return Reference{}, fmt.Errorf("reference %q names no producer", raw)
	}
	segments := strings.Split(body, ".")
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return Reference{}, fmt.Errorf("reference %q has an empty path segment", raw)
		}
	}

	return Reference{
		Raw:          raw,
		Producer:     segments[0],
		Path:         segments[1:],
		Declared:     declared,
		DeclaredText: declaredText,
	}, nil
}

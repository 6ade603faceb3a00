package ir

import (
	"fmt"
	"strings"
)

// ParseType parses a compact type annotation into a Type.
//
// Grammar:
//
//	type     := "string" | "number" | "boolean" | "object" | "unknown"
//	          | "array<" type ">"
//	          | "nullable<" type ">"
//	          | "map<" type "," type ">"
//	          | "union<" type ("," type)+ ">"
//	          | "object{" field ("," field)* "}"
//	field    := name ":" type
//
// Whitespace around tokens is ignored. Aliases accepted from common schema
// dialects: "bool" for boolean, "int"/"integer"/"float" for number, "any"
// for unknown, "null" for nullable<unknown>.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type annotation")
	}

	switch s {
	case "string":
		return TString{}, nil
	case "number", "int", "integer", "float":
		return TNumber{}, nil
	case "boolean", "bool":
		return TBool{}, nil
	case "object":
		return TObject{}, nil
	case "unknown", "any":
		return TUnknown{}, nil
	case "null":
		return TNullable{Elem: TUnknown{}}, nil
	}

	if strings.HasPrefix(s, "object{") && strings.HasSuffix(s, "}") {
		return parseObjectFields(s)
	}

	head, args, err := splitGeneric(s)
	if err != nil {
		return nil, err
	}

	switch head {
	case "array":
		if len(args) != 1 {
			return nil, fmt.Errorf("array takes exactly one type parameter: %q", s)
		}
		elem, err := ParseType(args[0])
		if err != nil {
			return nil, err
		}
		return TArray{Elem: elem}, nil

	case "nullable":
		if len(args) != 1 {
			return nil, fmt.Errorf("nullable takes exactly one type parameter: %q", s)
		}
		elem, err := ParseType(args[0])
		if err != nil {
			return nil, err
		}
		return TNullable{Elem: elem}, nil

	case "map":
		if len(args) != 2 {
			return nil, fmt.Errorf("map takes exactly two type parameters: %q", s)
		}
		key, err := ParseType(args[0])
		if err != nil {
			return nil, err
		}
		val, err := ParseType(args[1])
		if err != nil {
			return nil, err
		}
		return TMap{Key: key, Value: val}, nil

	case "union":
		if len(args) < 2 {
			return nil, fmt.Errorf("union takes at least two type parameters: %q", s)
		}
		alts := make([]Type, len(args))
		for i, arg := range args {
			alt, err := ParseType(arg)
			if err != nil {
				return nil, err
			}
			alts[i] = alt
		}
		return TUnion{Alts: alts}, nil

	default:
		return nil, fmt.Errorf("unknown type %q", s)
	}
}

// parseObjectFields parses "object{name:type,...}" into a TObject.
func parseObjectFields(s string) (Type, error) {
	body := s[len("object{") : len(s)-1]
	parts, err := splitTopLevel(body, s)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]Type, len(parts))
	for _, part := range parts {
		colon := strings.IndexByte(part, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("object field %q must be name:type in %q", part, s)
		}
		name := strings.TrimSpace(part[:colon])
		ft, err := ParseType(part[colon+1:])
		if err != nil {
			return nil, err
		}
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("duplicate object field %q in %q", name, s)
		}
		fields[name] = ft
	}
	return TObject{Fields: fields}, nil
}

// splitGeneric splits "head<a,b,...>" into head and its top-level comma
// separated arguments, respecting nested angle brackets.
func splitGeneric(s string) (string, []string, error) {
	open := strings.IndexByte(s, '<')
	if open < 0 || !strings.HasSuffix(s, ">") {
		return "", nil, fmt.Errorf("unknown type %q", s)
	}

	head := strings.TrimSpace(s[:open])
	args, err := splitTopLevel(s[open+1:len(s)-1], s)
	if err != nil {
		return "", nil, err
	}
	return head, args, nil
}

// splitTopLevel splits body on commas outside any angle-bracket or brace
// nesting. whole is the full annotation, used only for error messages.
func splitTopLevel(body, whole string) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '<', '{':
			depth++
		case '>', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", whole)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", whole)
	}
	parts = append(parts, strings.TrimSpace(body[start:]))

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("empty type parameter in %q", whole)
		}
	}
	return parts, nil
}

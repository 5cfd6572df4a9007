package schema

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kyleking/schemaflow/internal/errors"
)

// ParseDescriptor reads a YAML descriptor. Each top-level key is an entity;
// a mapping value declares an object whose keys are fields, a scalar value
// declares a non-object entity. Field values are type tokens:
//
//	User:
//	  id: uuid
//	  email: email
//	  name: string?
//	  roles: array(enum(admin|member))
//
// Key order in the document is the declaration order of the result.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeValidation, "failed to parse schema descriptor")
	}

	if len(doc.Content) == 0 {
		return Descriptor{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Newf(errors.ErrTypeValidation,
			"schema descriptor must be a mapping of entities (line %d)", root.Line)
	}

	descriptor := make(Descriptor, 0, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		t, err := parseEntityNode(key.Value, value)
		if err != nil {
			return nil, err
		}

		descriptor = append(descriptor, Entity{Name: key.Value, Type: t})
	}

	return descriptor, nil
}

// LoadDescriptorFile reads and parses a YAML descriptor file
func LoadDescriptorFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to read schema file %s", path)
	}

	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeValidation, "invalid schema file %s", path)
	}

	return d, nil
}

func parseEntityNode(name string, node *yaml.Node) (Type, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return parseTypeToken(node.Value, name, node.Line)
	case yaml.MappingNode:
		fields := make([]Field, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]

			if value.Kind != yaml.ScalarNode {
				return Type{}, errors.Newf(errors.ErrTypeValidation,
					"field %s.%s must be a type name (line %d)", name, key.Value, value.Line)
			}

			t, err := parseTypeToken(value.Value, name+"."+key.Value, value.Line)
			if err != nil {
				return Type{}, err
			}

			fields = append(fields, Field{Name: key.Value, Type: t})
		}

		return Object(fields...), nil
	default:
		return Type{}, errors.Newf(errors.ErrTypeValidation,
			"entity %s must be a mapping of fields or a type name (line %d)", name, node.Line)
	}
}

func parseTypeToken(token, path string, line int) (Type, error) {
	token = strings.TrimSpace(token)

	if strings.HasSuffix(token, "?") {
		inner, err := parseTypeToken(strings.TrimSuffix(token, "?"), path, line)
		if err != nil {
			return Type{}, err
		}

		return Optional(inner), nil
	}

	name, args, hasArgs := splitCall(token)

	switch name {
	case "string":
		return String(), nil
	case "uuid":
		return UUID(), nil
	case "email":
		return Email(), nil
	case "url":
		return URL(), nil
	case "number":
		return Number(), nil
	case "boolean", "bool":
		return Boolean(), nil
	case "date", "datetime", "timestamp":
		return Date(), nil
	case "any":
		return Any(), nil
	case "enum":
		if !hasArgs || args == "" {
			break
		}

		values := splitTopLevel(args)
		return Enum(values...), nil
	case "array", "record":
		inner := Any()

		if hasArgs {
			var err error
			if inner, err = parseTypeToken(args, path, line); err != nil {
				return Type{}, err
			}
		}

		if name == "array" {
			return Array(inner), nil
		}

		return Record(inner), nil
	case "union":
		if !hasArgs || args == "" {
			break
		}

		var arms []Type
		for _, armToken := range splitTopLevel(args) {
			arm, err := parseTypeToken(armToken, path, line)
			if err != nil {
				return Type{}, err
			}

			arms = append(arms, arm)
		}

		return Union(arms...), nil
	}

	return Type{}, errors.Newf(errors.ErrTypeValidation,
		"unknown type %q for %s (line %d)", token, path, line)
}

// splitCall splits "name(args)" into its parts
func splitCall(token string) (name, args string, ok bool) {
	open := strings.IndexByte(token, '(')
	if open < 0 || !strings.HasSuffix(token, ")") {
		return strings.ToLower(token), "", false
	}

	return strings.ToLower(strings.TrimSpace(token[:open])), strings.TrimSpace(token[open+1 : len(token)-1]), true
}

// splitTopLevel splits on '|' outside parentheses
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0

	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}

	return append(parts, strings.TrimSpace(s[start:]))
}

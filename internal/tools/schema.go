package tools

import (
	"reflect"
	"strings"
)

// Definition describes a tool for the generative backend.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is a JSON-schema object with flat properties.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
	// Order lists property names in declaration order.
	Order []string `json:"-"`
}

// Property defines a single parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// JSONSchema renders the parameters as a plain map for backends that take raw
// JSON schema documents.
func (p ParameterSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(p.Properties))
	for name, prop := range p.Properties {
		entry := map[string]any{"type": prop.Type}
		if prop.Description != "" {
			entry["description"] = prop.Description
		}
		if len(prop.Enum) > 0 {
			entry["enum"] = prop.Enum
		}
		props[name] = entry
	}
	out := map[string]any{"type": "object", "properties": props}
	if len(p.Required) > 0 {
		out["required"] = p.Required
	}
	return out
}

type field struct {
	index    int
	name     string
	kind     reflect.Kind
	required bool
	prop     Property
}

func fieldsOf(t reflect.Type) []field {
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("arg")
		if !ok {
			continue
		}
		parts := strings.Split(tag, ",")
		f := field{
			index: i,
			name:  parts[0],
			kind:  sf.Type.Kind(),
			prop:  Property{Type: jsonType(sf.Type.Kind()), Description: sf.Tag.Get("desc")},
		}
		for _, opt := range parts[1:] {
			if opt == "required" {
				f.required = true
			}
		}
		if enum := sf.Tag.Get("enum"); enum != "" {
			f.prop.Enum = strings.Split(enum, ",")
		}
		fields = append(fields, f)
	}
	return fields
}

func jsonType(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}

func definitionOf(cmd Command) Definition {
	schema := ParameterSchema{Type: "object", Properties: map[string]Property{}}
	for _, f := range fieldsOf(reflect.TypeOf(cmd)) {
		schema.Properties[f.name] = f.prop
		schema.Order = append(schema.Order, f.name)
		if f.required {
			schema.Required = append(schema.Required, f.name)
		}
	}
	return Definition{
		Name:        cmd.ToolName(),
		Description: descriptions[cmd.ToolName()],
		Parameters:  schema,
	}
}

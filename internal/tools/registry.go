package tools

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrUnknownTool is returned by Decode for names outside the catalog.
	ErrUnknownTool = errors.New("tools: tool not found")
	// ErrInvalidArguments wraps missing or mistyped arguments.
	ErrInvalidArguments = errors.New("tools: invalid arguments")
)

// Registry advertises the command catalog and decodes invocations into
// typed commands.
type Registry struct {
	defs   []Definition
	byName map[string]Command
}

// NewRegistry builds the registry from the fixed catalog.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Command, len(catalog))}
	for _, cmd := range catalog {
		r.defs = append(r.defs, definitionOf(cmd))
		r.byName[cmd.ToolName()] = cmd
	}
	return r
}

// Definitions returns the advertised tools in catalog order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Has reports whether name is a known tool.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Decode validates args against the named tool and returns the typed
// command. Extra arguments are ignored; JSON numbers are accepted for
// integer fields.
func (r *Registry) Decode(name string, args map[string]any) (Command, error) {
	proto, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	t := reflect.TypeOf(proto)
	v := reflect.New(t).Elem()
	for _, f := range fieldsOf(t) {
		raw, present := args[f.name]
		if !present || raw == nil {
			if f.required {
				return nil, fmt.Errorf("%w: missing required argument %q", ErrInvalidArguments, f.name)
			}
			continue
		}
		if err := assign(v.Field(f.index), f, raw); err != nil {
			return nil, err
		}
	}
	return v.Interface().(Command), nil
}

func assign(dst reflect.Value, f field, raw any) error {
	switch f.kind {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprint(raw)
		}
		s = strings.TrimSpace(s)
		if f.required && s == "" {
			return fmt.Errorf("%w: missing required argument %q", ErrInvalidArguments, f.name)
		}
		if len(f.prop.Enum) > 0 && s != "" && !contains(f.prop.Enum, s) {
			return fmt.Errorf("%w: argument %q must be one of %s", ErrInvalidArguments, f.name, strings.Join(f.prop.Enum, ", "))
		}
		dst.SetString(s)
	case reflect.Int64, reflect.Int, reflect.Int32:
		n, err := toInt(raw)
		if err != nil {
			return fmt.Errorf("%w: argument %q: %v", ErrInvalidArguments, f.name, err)
		}
		dst.SetInt(n)
	default:
		return fmt.Errorf("%w: argument %q has unsupported kind %s", ErrInvalidArguments, f.name, f.kind)
	}
	return nil
}

func toInt(raw any) (int64, error) {
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	case float32:
		return toInt(float64(n))
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

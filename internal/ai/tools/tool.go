// Package tools holds the functions the AI workflows can call: candidate
// analysis, LinkedIn lookups and candidate email.
package tools

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrMissingRequiredArg    = errors.New("missing required argument")
	ErrInvalidArgType        = errors.New("invalid argument type")
)

// ExecuteFunc runs a tool with decoded JSON-style arguments. Numbers may
// arrive as int or float64.
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

type Tool struct {
	Name        string
	Description string
	Required    []string
	Execute     ExecuteFunc
}

// Validate checks that the tool can be called
func (t *Tool) Validate() error {
	if t.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no execute function", t.Name)
	}
	return nil
}

// Call checks required arguments and runs the tool
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	for _, name := range t.Required {
		if _, ok := args[name]; !ok {
			return nil, fmt.Errorf("%s: %w: %s", t.Name, ErrMissingRequiredArg, name)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.Execute(ctx, args)
}

func argString(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArgType, name)
	}
	return s, nil
}

func argInt(args map[string]any, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArgType, name)
}

func argStrings(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain strings", ErrInvalidArgType, name)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidArgType, name)
}

func argMap(args map[string]any, name string) (map[string]any, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", ErrInvalidArgType, name)
	}
	return m, nil
}

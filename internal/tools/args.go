package tools

import (
	"fmt"

	"github.com/kitefield/chatgate/internal/chat"
)

// argString extracts a required string argument.
func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required argument %q", chat.ErrInvalidArgument, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", chat.ErrInvalidArgument, key)
	}
	if s == "" {
		return "", fmt.Errorf("%w: argument %q must not be empty", chat.ErrInvalidArgument, key)
	}
	return s, nil
}

// optString extracts an optional string argument, empty when absent.
func optString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", chat.ErrInvalidArgument, key)
	}
	return s, nil
}

// optInt extracts an optional integer argument. JSON numbers decode as
// float64, so both forms are accepted.
func optInt(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: argument %q must be an integer", chat.ErrInvalidArgument, key)
	}
}

// optBool extracts an optional boolean argument.
func optBool(args map[string]any, key string, def bool) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %q must be a boolean", chat.ErrInvalidArgument, key)
	}
	return b, nil
}

// optStrings extracts an optional string-array argument.
func optStrings(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
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
				return nil, fmt.Errorf("%w: argument %q must be an array of strings",
					chat.ErrInvalidArgument, key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: argument %q must be an array of strings",
			chat.ErrInvalidArgument, key)
	}
}

package dispatch

import (
	"strings"
)

// ResolveField resolves a dot-separated field path against the trigger
// payload first and the trigger context second. Missing paths report
// defined=false rather than an error; definedness is what the exists and
// not_exists operators test.
func ResolveField(path string, data, context map[string]any) (value any, defined bool) {
	parts := strings.Split(path, ".")

	if v, ok := lookup(data, parts); ok {
		return v, true
	}
	return lookup(context, parts)
}

// lookup descends nested map[string]any values along the path parts.
func lookup(m map[string]any, parts []string) (any, bool) {
	if m == nil || len(parts) == 0 {
		return nil, false
	}

	var current any = m
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

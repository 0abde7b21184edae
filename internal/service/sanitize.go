package service

import (
	"reflect"
	"strings"

	"flowboard/internal/domain"
)

// reservedDataKeys are node data keys that hold runtime-only values
// (editor callbacks, transient UI state) and are never persisted.
var reservedDataKeys = map[string]struct{}{
	"onDataChange": {},
	"onDelete":     {},
	"transient":    {},
}

func isReservedKey(key string) bool {
	if _, ok := reservedDataKeys[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "transient.") || strings.HasPrefix(key, "transient:")
}

// SanitizeNodes returns copies of nodes whose data holds only persistable
// values. The input is not modified.
func SanitizeNodes(nodes []domain.Node) []domain.Node {
	out := make([]domain.Node, len(nodes))
	for i, n := range nodes {
		n.Data = SanitizeData(n.Data)
		if n.Extra != nil {
			n.Extra = sanitizeMap(n.Extra)
		}
		out[i] = n
	}
	return out
}

// SanitizeData strips reserved keys at the top level and unpersistable values
// (functions, channels, unsafe pointers) at any depth. Nil becomes an empty map.
func SanitizeData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if isReservedKey(k) {
			continue
		}
		if clean, keep := sanitizeValue(v); keep {
			out[k] = clean
		}
	}
	return out
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if clean, keep := sanitizeValue(v); keep {
			out[k] = clean
		}
	}
	return out
}

func sanitizeValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case map[string]any:
		return sanitizeMap(val), true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if clean, keep := sanitizeValue(item); keep {
				out = append(out, clean)
			}
		}
		return out, true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	}
	return v, true
}

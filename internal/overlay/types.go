package overlay

// Document is a configuration tree: string-keyed mappings and scalar values,
// arbitrarily nested. Nested values count as mappings only when they are
// map[string]any or Document.
type Document map[string]any

// Clone returns a deep copy of the mappings and slices in d. Scalars are
// shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case Document:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}

// AsMapping reports whether v is a mapping and returns it as a plain map.
func AsMapping(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, x != nil
	case Document:
		return map[string]any(x), x != nil
	default:
		return nil, false
	}
}

// Value returns the value stored at path, or false if any segment is missing
// or an intermediate segment is not a mapping.
func (d Document) Value(path []string) (any, bool) {
	if d == nil || len(path) == 0 {
		return nil, false
	}
	node := map[string]any(d)
	for i, segment := range path {
		v, ok := node[segment]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		if node, ok = AsMapping(v); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Overlayer describes the behaviour required from an environment overlay.
type Overlayer interface {
	Apply(doc Document, rules []Rule) (Document, error)
}

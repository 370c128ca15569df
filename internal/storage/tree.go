package storage

// cloneValue deep-copies the map and slice structure of a document value so
// callers never share mutable state with a store.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// applyField performs one merge-write step on data in place.
func applyField(data map[string]any, f Field) {
	if len(f.Path) == 0 {
		return
	}
	parent := data
	for _, seg := range f.Path[:len(f.Path)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			if IsDelete(f.Value) {
				return
			}
			next = map[string]any{}
			parent[seg] = next
		}
		parent = next
	}
	leaf := f.Path[len(f.Path)-1]
	if IsDelete(f.Value) {
		delete(parent, leaf)
		return
	}
	parent[leaf] = cloneValue(f.Value)
}

// nest builds the nested map that places every field value at its path.
// Backends whose write API takes a document-shaped value use it together
// with an explicit list of merge paths.
func nest(fields []Field, deleteValue any) map[string]any {
	out := map[string]any{}
	for _, f := range fields {
		v := f.Value
		if IsDelete(v) {
			v = deleteValue
		}
		if len(f.Path) == 0 {
			continue
		}
		parent := out
		for _, seg := range f.Path[:len(f.Path)-1] {
			next, ok := parent[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				parent[seg] = next
			}
			parent = next
		}
		parent[f.Path[len(f.Path)-1]] = v
	}
	return out
}

package patch

// Tree is the JSON-shaped assistant-message tree the patches fold into.
type Tree = map[string]any

// Apply folds one patch into the tree and returns the resulting tree. The
// input tree is never mutated: containers along the key path are
// shallow-copied, untouched siblings are shared. ActionEnd returns the
// tree unchanged — it only signals completion to the caller.
func Apply(tree Tree, p Patch) Tree {
	switch p.Action {
	case ActionUpsert, ActionAppend:
		if len(p.Key) == 0 {
			return tree
		}
		next := write(tree, p.Key, p.Content, p.Action == ActionAppend)
		if m, ok := next.(map[string]any); ok {
			return m
		}
		return tree

	default:
		return tree
	}
}

// write applies the remaining key path against node, returning the new
// node. Missing or wrong-typed intermediates are (re)created: an int
// segment addresses an array, a string segment an object, which is exactly
// the "inspect the next key" creation rule — each level's container kind
// is decided by the segment that addresses into it.
func write(node any, key Path, content any, appendLeaf bool) any {
	seg := key[0]

	if idx, ok := seg.(int); ok {
		arr := cloneSlice(node, idx+1)
		if len(key) == 1 {
			// Insert/replace-at-index. Arrays grow by callers supplying
			// increasing indices; this is not a concatenation.
			arr[idx] = content
			return arr
		}
		arr[idx] = write(arr[idx], key[1:], content, appendLeaf)
		return arr
	}

	field, ok := seg.(string)
	if !ok {
		return node
	}

	m := cloneMap(node)
	if len(key) == 1 {
		if appendLeaf {
			if prev, ok := m[field].(string); ok {
				if s, ok := content.(string); ok {
					m[field] = prev + s
					return m
				}
			}
		}
		m[field] = content
		return m
	}
	m[field] = write(m[field], key[1:], content, appendLeaf)
	return m
}

// cloneMap shallow-copies node when it is an object; anything else
// (including nil) is replaced by a fresh object.
func cloneMap(node any) map[string]any {
	src, ok := node.(map[string]any)
	if !ok {
		return make(map[string]any)
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// cloneSlice shallow-copies node when it is an array, growing it to at
// least size slots; anything else is replaced by a fresh array.
func cloneSlice(node any, size int) []any {
	src, _ := node.([]any)
	if size < len(src) {
		size = len(src)
	}
	dst := make([]any, size)
	copy(dst, src)
	return dst
}

// Get walks the path without mutating anything. The second return is false
// when any step is missing or of the wrong shape.
func Get(tree Tree, key Path) (any, bool) {
	var cur any = tree
	for _, seg := range key {
		switch s := seg.(type) {
		case int:
			arr, ok := cur.([]any)
			if !ok || s < 0 || s >= len(arr) {
				return nil, false
			}
			cur = arr[s]
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[s]
			if !ok {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetString is Get narrowed to string leaves.
func GetString(tree Tree, key Path) (string, bool) {
	v, ok := Get(tree, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetMap is Get narrowed to object nodes.
func GetMap(tree Tree, key Path) (map[string]any, bool) {
	v, ok := Get(tree, key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// GetSlice is Get narrowed to array nodes.
func GetSlice(tree Tree, key Path) ([]any, bool) {
	v, ok := Get(tree, key)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

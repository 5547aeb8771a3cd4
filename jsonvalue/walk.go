package jsonvalue

// Node is one value reached by Walk.
type Node struct {
	// Path is the location of the value, "" for the root
	Path string

	// Key is the object key holding the value; empty for array items and the root
	Key string

	// Value is the decoded JSON value
	Value any

	// Kind is KindOf(Value)
	Kind Kind
}

// Object returns the node value as a JSON object.
func (n Node) Object() (map[string]any, bool) {
	return AsObject(n.Value)
}

// Visitor is called for every node in pre-order. Returning false skips the
// node's children.
type Visitor func(n Node) bool

// Walk visits root and every nested value depth-first. Object members are
// visited in lexical key order so that repeated walks yield identical
// sequences.
func Walk(root any, visit Visitor) {
	pb := AcquirePathBuilder()
	defer pb.Release()
	walk(pb, "", root, visit)
}

func walk(pb *PathBuilder, key string, v any, visit Visitor) {
	kind := KindOf(v)
	if !visit(Node{Path: pb.String(), Key: key, Value: v, Kind: kind}) {
		return
	}

	mark := pb.Len()
	switch kind {
	case Object:
		obj := v.(map[string]any)
		for _, k := range SortedKeys(obj) {
			pb.AppendKey(k)
			walk(pb, k, obj[k], visit)
			pb.Truncate(mark)
		}
	case Array:
		for i, item := range v.([]any) {
			pb.AppendIndex(i)
			walk(pb, "", item, visit)
			pb.Truncate(mark)
		}
	}
}

// WalkObjects calls fn for every object in the tree, root included.
func WalkObjects(root any, fn func(path string, obj map[string]any)) {
	Walk(root, func(n Node) bool {
		if obj, ok := n.Value.(map[string]any); ok {
			fn(n.Path, obj)
		}
		return true
	})
}

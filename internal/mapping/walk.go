package mapping

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/hdfhub/internal/record"
)

// TransformError reports a transformer that failed while walking a
// specification. Field is the output location, e.g.
// "profiles[0].controls[3].impact".
type TransformError struct {
	Field string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform failed at %s: %v", e.Field, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Walk evaluates node against rec and returns plain Go values shaped like
// the specification: map[string]any for objects, []any for collections.
// rec is also the root for "$"-prefixed paths.
func Walk(node Node, rec record.Value) (any, error) {
	w := &walker{root: rec}
	out, ok, err := w.walk(node, rec, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return out, nil
}

type walker struct {
	root record.Value
}

func (w *walker) lookup(p record.Path, current record.Value) (record.Value, bool) {
	if p.Rooted() {
		return p.Lookup(w.root)
	}
	return p.Lookup(current)
}

// walk returns the output for node, whether it is present, and any error
func (w *walker) walk(node Node, current record.Value, at string) (any, bool, error) {
	switch n := node.(type) {
	case LiteralNode:
		return n.Value, true, nil

	case PathNode:
		v, ok := w.lookup(n.Path, current)
		if !ok {
			if n.HasDefault {
				return n.Default, true, nil
			}
			return nil, false, nil
		}
		return v.Interface(), true, nil

	case TransformNode:
		v, ok := w.lookup(n.Path, current)
		if !ok {
			if n.HasDefault {
				return n.Default, true, nil
			}
			return nil, false, nil
		}
		out, err := n.Fn(v)
		if err != nil {
			return nil, false, &TransformError{Field: fieldName(at), Err: err}
		}
		if _, skip := out.(omitted); skip {
			return nil, false, nil
		}
		return out, true, nil

	case ArrayTransformNode:
		var items []record.Value
		if v, ok := w.lookup(n.Path, current); ok {
			items = asCollection(v)
		}
		out, err := n.Fn(items, current)
		if err != nil {
			return nil, false, &TransformError{Field: fieldName(at), Err: err}
		}
		if out == nil {
			out = []any{}
		}
		return out, true, nil

	case CollectionNode:
		var items []record.Value
		if n.Path.IsRoot() && !n.Path.Rooted() {
			items = []record.Value{current}
		} else if v, ok := w.lookup(n.Path, current); ok {
			items = asCollection(v)
		}

		out := make([]any, 0, len(items))
		for i, item := range items {
			mapped, ok, err := w.walk(n.Item, item, at+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, false, err
			}
			if ok {
				out = append(out, mapped)
			}
		}

		if n.Post != nil {
			post, err := n.Post(out, current)
			if err != nil {
				return nil, false, &TransformError{Field: fieldName(at), Err: err}
			}
			if post == nil {
				post = []any{}
			}
			out = post
		}
		return out, true, nil

	case ObjectNode:
		out := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			child := f.Key
			if at != "" {
				child = at + "." + f.Key
			}
			v, ok, err := w.walk(f.Node, current, child)
			if err != nil {
				return nil, false, err
			}
			if ok {
				out[f.Key] = v
			}
		}
		return out, true, nil

	case nil:
		return nil, false, fmt.Errorf("nil mapping node at %s", fieldName(at))

	default:
		return nil, false, fmt.Errorf("unsupported mapping node %T at %s", node, fieldName(at))
	}
}

// asCollection treats a list as its elements and anything else as one item
func asCollection(v record.Value) []record.Value {
	if v.Kind() == record.KindList {
		return v.Items()
	}
	return []record.Value{v}
}

func fieldName(at string) string {
	if at == "" {
		return "<root>"
	}
	return at
}

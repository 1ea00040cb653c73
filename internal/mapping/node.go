// Package mapping interprets declarative mapping specifications that turn a
// tool's raw record into the canonical execution record.
//
// A specification is a tree of Nodes. Each variant says explicitly what it
// is, so the walker never has to guess whether a value is a leaf descriptor
// or nested structure:
//
//	LiteralNode         constant value
//	PathNode            value found at a path in the current record
//	TransformNode       function of the value at a path (or the whole record)
//	ArrayTransformNode  function of a whole resolved collection, emits a list
//	CollectionNode      per-item sub-specification over a collection
//	ObjectNode          ordered set of named fields
package mapping

import (
	"github.com/ppiankov/hdfhub/internal/record"
)

// Node is one element of a mapping specification
type Node interface {
	isNode()
}

// TransformFunc derives an output value from a resolved input value.
// Returning Omit drops the field from the output.
type TransformFunc func(v record.Value) (any, error)

type omitted struct{}

// Omit is returned by a TransformFunc to leave its field out of the output
var Omit any = omitted{}

// ArrayFunc derives a list of output values from a whole collection
type ArrayFunc func(items []record.Value, current record.Value) ([]any, error)

// PostFunc rewrites the list produced by a CollectionNode. current is the
// record the collection was resolved against.
type PostFunc func(out []any, current record.Value) ([]any, error)

// LiteralNode emits Value unchanged
type LiteralNode struct {
	Value any
}

// PathNode emits the value at Path, or Default when the path is absent and
// HasDefault is set. Otherwise an absent path omits the field.
type PathNode struct {
	Path       record.Path
	Default    any
	HasDefault bool
}

// TransformNode applies Fn to the value at Path. The zero Path passes the
// whole current record. An absent path never calls Fn.
type TransformNode struct {
	Path       record.Path
	Fn         TransformFunc
	Default    any
	HasDefault bool
}

// ArrayTransformNode hands the whole collection at Path to Fn at once.
// Absent paths yield an empty collection; a non-list value is a collection
// of one.
type ArrayTransformNode struct {
	Path record.Path
	Fn   ArrayFunc
}

// CollectionNode walks Item once per element of the collection at Path,
// keeping source order. The zero Path maps the current record as a single
// element.
type CollectionNode struct {
	Path record.Path
	Item Node
	Post PostFunc
}

// ObjectNode emits a map with one entry per field
type ObjectNode struct {
	Fields []FieldNode
}

// FieldNode names one entry of an ObjectNode
type FieldNode struct {
	Key  string
	Node Node
}

func (LiteralNode) isNode()        {}
func (PathNode) isNode()           {}
func (TransformNode) isNode()      {}
func (ArrayTransformNode) isNode() {}
func (CollectionNode) isNode()     {}
func (ObjectNode) isNode()         {}

// Lit is a literal leaf
func Lit(v any) LiteralNode {
	return LiteralNode{Value: v}
}

// Path is a lookup leaf. It panics on malformed paths, which are programming
// errors in a static specification.
func Path(path string) PathNode {
	return PathNode{Path: record.MustParsePath(path)}
}

// PathOr is a lookup leaf with a default for absent paths
func PathOr(path string, def any) PathNode {
	return PathNode{Path: record.MustParsePath(path), Default: def, HasDefault: true}
}

// Apply runs fn on the value at path
func Apply(path string, fn TransformFunc) TransformNode {
	return TransformNode{Path: record.MustParsePath(path), Fn: fn}
}

// ApplyOr runs fn on the value at path, using def when the path is absent
func ApplyOr(path string, fn TransformFunc, def any) TransformNode {
	return TransformNode{Path: record.MustParsePath(path), Fn: fn, Default: def, HasDefault: true}
}

// Compute runs fn on the whole current record
func Compute(fn TransformFunc) TransformNode {
	return TransformNode{Fn: fn}
}

// Fanout hands the whole collection at path to fn
func Fanout(path string, fn ArrayFunc) ArrayTransformNode {
	return ArrayTransformNode{Path: record.MustParsePath(path), Fn: fn}
}

// Each maps item over every element of the collection at path
func Each(path string, item Node) CollectionNode {
	return CollectionNode{Path: record.MustParsePath(path), Item: item}
}

// WithPost returns a copy of the collection with fn applied to its output
func (c CollectionNode) WithPost(fn PostFunc) CollectionNode {
	c.Post = fn
	return c
}

// Object builds an object node from fields, in declaration order
func Object(fields ...FieldNode) ObjectNode {
	return ObjectNode{Fields: fields}
}

// Field names a node inside an object
func Field(key string, node Node) FieldNode {
	return FieldNode{Key: key, Node: node}
}

// Empty is an empty list literal, for schema fields that must be present
func Empty() LiteralNode {
	return Lit([]any{})
}

package record

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one step of a lookup path
type segment struct {
	key   string
	index int // -1 when the segment carries no [N] suffix
	all   bool
}

// Path is a parsed lookup path. The zero Path resolves to the record itself.
//
// Supported syntax:
//   - "a.b.c"        nested map access
//   - "runs[0]"      list index
//   - "runs[].id"    every element of runs, with the rest of the path
//     applied to each element and the results flattened into one list
//   - "$.version"    rooted at the whole input rather than the current record
type Path struct {
	raw      string
	segments []segment
	rooted   bool
}

// ParsePath parses a lookup path
func ParsePath(path string) (Path, error) {
	p := Path{raw: path}

	switch {
	case path == "" || path == "$":
		p.rooted = path == "$"
		return p, nil
	case strings.HasPrefix(path, "$."):
		p.rooted = true
		path = path[2:]
	}

	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return Path{}, fmt.Errorf("invalid path %q: empty segment", p.raw)
		}

		name := part
		var brackets []string
		if open := strings.IndexByte(part, '['); open >= 0 {
			name = part[:open]
			rest := part[open:]
			for rest != "" {
				if rest[0] != '[' {
					return Path{}, fmt.Errorf("invalid path %q: unexpected %q", p.raw, rest)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return Path{}, fmt.Errorf("invalid path %q: unclosed bracket", p.raw)
				}
				brackets = append(brackets, rest[1:end])
				rest = rest[end+1:]
			}
		}

		if strings.ContainsRune(name, ']') {
			return Path{}, fmt.Errorf("invalid path %q: unexpected ']'", p.raw)
		}

		if name != "" {
			p.segments = append(p.segments, segment{key: name, index: -1})
		} else if len(brackets) == 0 {
			return Path{}, fmt.Errorf("invalid path %q: empty segment", p.raw)
		}

		for _, b := range brackets {
			if b == "" {
				p.segments = append(p.segments, segment{index: -1, all: true})
				continue
			}
			i, err := strconv.Atoi(b)
			if err != nil || i < 0 {
				return Path{}, fmt.Errorf("invalid path %q: bad index %q", p.raw, b)
			}
			p.segments = append(p.segments, segment{index: i})
		}
	}

	return p, nil
}

// MustParsePath is like ParsePath but panics on malformed input. It is meant
// for mapping specifications declared as package-level data.
func MustParsePath(path string) Path {
	p, err := ParsePath(path)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.raw }

// IsRoot reports whether the path addresses the record itself
func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// Rooted reports whether the path starts at the whole input ("$")
func (p Path) Rooted() bool { return p.rooted }

// Lookup resolves the path against v. The second return is false when the
// path is absent; null, false and zero are ordinary present values.
func (p Path) Lookup(v Value) (Value, bool) {
	return lookup(v, p.segments)
}

func lookup(v Value, segs []segment) (Value, bool) {
	for i, seg := range segs {
		switch {
		case seg.key != "":
			next, ok := v.Get(seg.key)
			if !ok {
				return Value{}, false
			}
			v = next
		case seg.all:
			if v.Kind() != KindList {
				return Value{}, false
			}
			rest := segs[i+1:]
			out := make([]Value, 0, v.Len())
			for _, item := range v.Items() {
				found, ok := lookup(item, rest)
				if !ok {
					continue
				}
				// Nested fan-outs flatten into a single list.
				if found.Kind() == KindList && hasFanout(rest) {
					out = append(out, found.Items()...)
					continue
				}
				out = append(out, found)
			}
			return List(out...), true
		default:
			next, ok := v.Index(seg.index)
			if !ok {
				return Value{}, false
			}
			v = next
		}
	}
	return v, true
}

func hasFanout(segs []segment) bool {
	for _, s := range segs {
		if s.all {
			return true
		}
	}
	return false
}

// Resolve parses path and looks it up in v. A malformed path is treated as
// absent.
func Resolve(v Value, path string) (Value, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return Value{}, false
	}
	return p.Lookup(v)
}

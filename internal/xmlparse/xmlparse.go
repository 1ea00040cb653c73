// Package xmlparse turns XML exports into generic records using a
// per-format binding table.
package xmlparse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/record"
)

// Binding describes the shape of one XML format
type Binding struct {
	// Format names the input in error messages
	Format string

	// Root is the required document element
	Root string

	// Lists holds dotted element paths, starting at Root, whose values are
	// always lists even when the document has a single such element.
	Lists []string
}

// Parse decodes data into a record. Element names lose any namespace prefix,
// attributes are stored under "-name" keys and mixed text under "#text".
// Character data is kept exactly as written, leading and trailing whitespace
// included. Any parse failure is reported as *converter.MalformedInputError.
func Parse(data []byte, b Binding) (record.Value, error) {
	tree, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return record.Value{}, &converter.MalformedInputError{
			Format: b.Format,
			Reason: "invalid XML",
			Err:    err,
		}
	}

	raw, err := record.From(elements(tree))
	if err != nil {
		return record.Value{}, &converter.MalformedInputError{
			Format: b.Format,
			Reason: "unsupported XML content",
			Err:    err,
		}
	}

	lists := make(map[string]bool, len(b.Lists))
	for _, p := range b.Lists {
		lists[p] = true
	}
	doc := normalize(raw, "", lists)

	if b.Root != "" {
		if _, ok := doc.Get(b.Root); !ok {
			return record.Value{}, &converter.MalformedInputError{
				Format: b.Format,
				Reason: fmt.Sprintf("missing <%s> root element", b.Root),
			}
		}
	}
	return doc, nil
}

// elements collects the element children of n by name. Repeated names
// become lists in document order.
func elements(n *xmlquery.Node) map[string]interface{} {
	out := make(map[string]interface{})
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		key := c.Data
		if c.Prefix != "" {
			key = c.Prefix + ":" + c.Data
		}
		val := element(c)
		switch prev := out[key].(type) {
		case nil:
			out[key] = val
		case []interface{}:
			out[key] = append(prev, val)
		default:
			out[key] = []interface{}{prev, val}
		}
	}
	return out
}

// element returns the raw text of a simple element, or a map of its
// attributes, children and non-blank text otherwise.
func element(n *xmlquery.Node) interface{} {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			text.WriteString(c.Data)
		}
	}

	children := elements(n)
	if len(children) == 0 && len(n.Attr) == 0 {
		return text.String()
	}

	for _, a := range n.Attr {
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + name
		}
		children["-"+name] = a.Value
	}
	if strings.TrimSpace(text.String()) != "" {
		children["#text"] = text.String()
	}
	return children
}

func normalize(v record.Value, at string, lists map[string]bool) record.Value {
	switch v.Kind() {
	case record.KindMap:
		out := make(map[string]record.Value, v.Len())
		for key, child := range v.Fields() {
			name := LocalName(key)
			childPath := name
			if at != "" {
				childPath = at + "." + name
			}
			child = normalize(child, childPath, lists)
			if lists[childPath] && child.Kind() != record.KindList {
				child = record.List(child)
			}
			out[name] = child
		}
		return record.Map(out)
	case record.KindList:
		items := make([]record.Value, v.Len())
		for i, item := range v.Items() {
			items[i] = normalize(item, at, lists)
		}
		return record.List(items...)
	default:
		return v
	}
}

// LocalName strips a namespace prefix from an element name. Attribute keys
// ("-name") and text keys ("#text") are returned unchanged.
func LocalName(key string) string {
	if strings.HasPrefix(key, "-") || strings.HasPrefix(key, "#") {
		return key
	}
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

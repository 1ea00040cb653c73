package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/spf13/cast"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a semi-structured record produced by parsing a tool's native
// export. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	l    []Value
	m    map[string]Value
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// List wraps a list of values. A nil slice is an empty list.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, l: items}
}

// Map wraps a map of values. A nil map is an empty map.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether v is a Bool
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether v is a Number
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and whether v is a String
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Items returns the list elements, or nil when v is not a List
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.l
}

// Fields returns the map entries, or nil when v is not a Map
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Keys returns map keys in sorted order
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the entry stored under key when v is a Map
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Index returns the i-th element when v is a List
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.l) {
		return Value{}, false
	}
	return v.l[i], true
}

// Len returns the number of list elements or map entries
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.l)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// Str coerces scalars to their string form. Lists and maps render as JSON.
func (v Value) Str() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.s
	case KindList, KindMap:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return cast.ToString(v.Interface())
	}
}

// Float coerces the value to a float64
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.n, nil
	case KindList, KindMap:
		return 0, fmt.Errorf("cannot convert %s to number", v.kind)
	default:
		return cast.ToFloat64E(v.Interface())
	}
}

// Interface converts the value back to plain Go values:
// nil, bool, float64, string, []any, map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.l))
		for i, item := range v.l {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders the value with map keys sorted, so identical
// records always serialize identically.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.l {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			data, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v.Interface())
	}
}

// UnmarshalJSON decodes any JSON document into a Value
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON decodes a JSON document into a Value. Numbers keep full precision
// until they are converted to float64.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return From(raw)
}

// FromStruct converts a tagged Go struct into a Value through its JSON form
func FromStruct(src any) (Value, error) {
	data, err := json.Marshal(src)
	if err != nil {
		return Value{}, fmt.Errorf("failed to encode %T: %w", src, err)
	}
	return FromJSON(data)
}

// From converts decoded native Go values (as produced by encoding/json or an
// XML-to-map parser) into a Value.
func From(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		n, err := cast.ToFloat64E(t.String())
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(n), nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := cast.ToFloat64E(t)
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			converted, err := From(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, converted)
		}
		return List(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			converted, err := From(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = converted
		}
		return Map(m), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...), nil
	case map[string]string:
		m := make(map[string]Value, len(t))
		for k, s := range t {
			m[k] = String(s)
		}
		return Map(m), nil
	}

	// Named map and slice types fall through to reflection.
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			converted, err := From(iter.Value().Interface())
			if err != nil {
				return Value{}, err
			}
			m[iter.Key().String()] = converted
		}
		return Map(m), nil
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			converted, err := From(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			items[i] = converted
		}
		return List(items...), nil
	}

	return Value{}, fmt.Errorf("unsupported value type %T", raw)
}

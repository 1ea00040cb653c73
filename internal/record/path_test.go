package record

import (
	"testing"
)

func mustJSON(t *testing.T, s string) Value {
	t.Helper()
	v, err := FromJSON([]byte(s))
	if err != nil {
		t.Fatalf("FromJSON(%s): %v", s, err)
	}
	return v
}

func TestResolveNestedList(t *testing.T) {
	v := mustJSON(t, `{"a":{"b":[1,2,3]}}`)

	got, ok := Resolve(v, "a.b")
	if !ok {
		t.Fatal("expected a.b to be present")
	}
	if got.Kind() != KindList || got.Len() != 3 {
		t.Fatalf("expected list of 3, got %s len %d", got.Kind(), got.Len())
	}
	for i, want := range []float64{1, 2, 3} {
		item, _ := got.Index(i)
		if n, _ := item.AsNumber(); n != want {
			t.Errorf("item %d = %v, want %v", i, n, want)
		}
	}
}

func TestResolveMissingIsAbsent(t *testing.T) {
	v := mustJSON(t, `{}`)
	if _, ok := Resolve(v, "x.y"); ok {
		t.Fatal("expected x.y to be absent")
	}
}

func TestResolveDistinguishesFalsyValues(t *testing.T) {
	v := mustJSON(t, `{"n":null,"f":false,"z":0,"e":""}`)

	tests := []struct {
		path string
		kind Kind
	}{
		{"n", KindNull},
		{"f", KindBool},
		{"z", KindNumber},
		{"e", KindString},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Resolve(v, tt.path)
			if !ok {
				t.Fatalf("expected %s to be present", tt.path)
			}
			if got.Kind() != tt.kind {
				t.Errorf("kind = %s, want %s", got.Kind(), tt.kind)
			}
		})
	}
}

func TestResolveTypeMismatchIsAbsent(t *testing.T) {
	v := mustJSON(t, `{"a":"scalar","l":[1]}`)

	for _, path := range []string{"a.b", "l.x", "l[5]", "a[0]", "a[]"} {
		if _, ok := Resolve(v, path); ok {
			t.Errorf("expected %s to be absent", path)
		}
	}
}

func TestResolveIndexAndFanout(t *testing.T) {
	v := mustJSON(t, `{"runs":[
		{"id":"r1","results":[{"rule":"a"},{"rule":"b"}]},
		{"id":"r2","results":[{"rule":"c"}]},
		{"other":true}
	]}`)

	got, ok := Resolve(v, "runs[1].id")
	if !ok {
		t.Fatal("expected runs[1].id")
	}
	if s, _ := got.AsString(); s != "r2" {
		t.Errorf("runs[1].id = %q, want r2", s)
	}

	ids, ok := Resolve(v, "runs[].id")
	if !ok {
		t.Fatal("expected runs[].id")
	}
	if ids.Len() != 2 {
		t.Fatalf("expected 2 ids (missing ones skipped), got %d", ids.Len())
	}

	rules, ok := Resolve(v, "runs[].results[].rule")
	if !ok {
		t.Fatal("expected runs[].results[].rule")
	}
	var names []string
	for _, r := range rules.Items() {
		s, _ := r.AsString()
		names = append(names, s)
	}
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("flattened rules = %v, want [a b c]", names)
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, path := range []string{"a..b", "a[", "a[x]", "a[-1]", ".a", "a.", "a]b"} {
		t.Run(path, func(t *testing.T) {
			if _, err := ParsePath(path); err == nil {
				t.Errorf("expected error for %q", path)
			}
		})
	}
}

func TestParsePathRooted(t *testing.T) {
	p, err := ParsePath("$.version")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if !p.Rooted() {
		t.Error("expected rooted path")
	}

	v := mustJSON(t, `{"version":"2.1.0"}`)
	got, ok := p.Lookup(v)
	if !ok {
		t.Fatal("expected version")
	}
	if s, _ := got.AsString(); s != "2.1.0" {
		t.Errorf("version = %q", s)
	}
}

func TestEmptyPathIsRecord(t *testing.T) {
	v := mustJSON(t, `{"a":1}`)
	got, ok := Resolve(v, "")
	if !ok || got.Kind() != KindMap {
		t.Fatalf("expected record itself, got %s ok=%v", got.Kind(), ok)
	}
}

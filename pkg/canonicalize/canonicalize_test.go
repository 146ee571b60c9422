package canonicalize

import (
	"fmt"
	"math"
	"testing"
)

func TestMapKeysSorted(t *testing.T) {
	v := map[string]any{"c": int64(3), "a": int64(1), "b": int64(2)}
	b, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	if got, want := string(b), `{"a":1,"b":2,"c":3}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestNestedOrdering(t *testing.T) {
	v := map[string]any{
		"z": map[string]any{"y": "foo", "x": "bar"},
		"a": int64(1),
	}
	b, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	if got, want := string(b), `{"a":1,"z":{"x":"bar","y":"foo"}}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestSequenceOrderPreserved(t *testing.T) {
	v := []any{int64(3), int64(1), int64(2)}
	b, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	if got, want := string(b), `[3,1,2]`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestNoHTMLEscaping(t *testing.T) {
	v := map[string]any{"html": "<script>alert('x')</script> &"}
	b, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	want := `{"html":"<script>alert('x')</script> &"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", string(b), want)
	}
}

func TestFloatSpecialValues(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Inf"`},
		{math.Inf(-1), `"-Inf"`},
	}
	for _, c := range cases {
		b, err := Canonical(c.in)
		if err != nil {
			t.Fatalf("Canonical failed: %v", err)
		}
		if string(b) != c.want {
			t.Errorf("Canonical(%v) = %s, want %s", c.in, string(b), c.want)
		}
	}
}

func TestFloatFiniteRoundTrips(t *testing.T) {
	vals := []float64{0.01, 0.1, 100.0, -1.5e10, 1.0 / 3.0}
	for _, v := range vals {
		b, err := Canonical(v)
		if err != nil {
			t.Fatalf("Canonical failed: %v", err)
		}
		var got float64
		if _, err := fmt.Sscan(string(b), &got); err != nil {
			t.Fatalf("failed to parse back %s: %v", string(b), err)
		}
		if got != v {
			t.Errorf("round-trip mismatch: %v -> %s -> %v", v, string(b), got)
		}
	}
}

func TestUnicodeNotEscaped(t *testing.T) {
	v := map[string]any{"name": "café"}
	b, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	want := `{"name":"café"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", string(b), want)
	}
}

func TestHidStructStable(t *testing.T) {
	a := map[string]any{"a": int64(1), "b": map[string]any{"x": "y"}}
	b := map[string]any{"b": map[string]any{"x": "y"}, "a": int64(1)}

	ha, err := HidStruct(a)
	if err != nil {
		t.Fatalf("HidStruct failed: %v", err)
	}
	hb, err := HidStruct(b)
	if err != nil {
		t.Fatalf("HidStruct failed: %v", err)
	}
	if ha != hb {
		t.Errorf("digest differs under map key reordering: %s != %s", ha, hb)
	}
}

func TestHidStructDiffersOnContent(t *testing.T) {
	a := map[string]any{"a": int64(1)}
	b := map[string]any{"a": int64(2)}
	ha, _ := HidStruct(a)
	hb, _ := HidStruct(b)
	if ha == hb {
		t.Error("expected differing digests for differing content")
	}
}

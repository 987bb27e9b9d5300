package meta

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateLimits(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i <= MaxPairs; i++ {
		pairs["key"+strings.Repeat("x", i)] = "v"
	}
	if err := New(pairs).Validate(); err == nil {
		t.Fatal("expected error for too many pairs")
	}
	if err := New(map[string]string{strings.Repeat("k", MaxKeyLen+1): "v"}).Validate(); err == nil {
		t.Fatal("expected error for long key")
	}
	if err := New(map[string]string{"k": strings.Repeat("v", MaxValLen+1)}).Validate(); err == nil {
		t.Fatal("expected error for long value")
	}
	if err := New(map[string]string{"receipt": "INV-42"}).Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}
}

func TestStableJSON(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1"})
	b, err := m.MarshalStableJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"1","b":"2"}` {
		t.Fatalf("unexpected encoding: %s", b)
	}

	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["a"] != "1" || back["b"] != "2" {
		t.Fatalf("roundtrip lost data: %+v", back)
	}

	var fromNull Metadata
	if err := json.Unmarshal([]byte("null"), &fromNull); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if fromNull == nil {
		t.Fatal("null should decode to an empty, non-nil map")
	}
}

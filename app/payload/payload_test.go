package payload

import (
	"testing"
)

func mustParseObject(t *testing.T, raw string) *Object {
	t.Helper()
	obj, err := ParseObject([]byte(raw))
	if err != nil {
		t.Fatalf("parse %s failed: %v", raw, err)
	}
	return obj
}

func mustEncode(t *testing.T, obj *Object) string {
	t.Helper()
	out, err := obj.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return out
}

func TestParsePreservesKeyOrderAndNumbers(t *testing.T) {
	raw := `{"z":1,"a":{"y":"x","b":[1,2.50,"c"]},"m":null,"t":true,"big":12345678901234567890}`
	obj := mustParseObject(t, raw)

	if got := mustEncode(t, obj); got != raw {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", got, raw)
	}
	if keys := obj.Keys(); len(keys) != 5 || keys[0] != "z" || keys[1] != "a" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	if _, err := Parse([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestParseObjectRejectsArrays(t *testing.T) {
	if _, err := ParseObject([]byte(`[1,2]`)); err != ErrNotObject {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestParseObjectOrEmpty(t *testing.T) {
	if obj := ParseObjectOrEmpty(""); obj.Len() != 0 {
		t.Fatalf("expected empty object for blank input, got %d keys", obj.Len())
	}
	if obj := ParseObjectOrEmpty("{broken"); obj.Len() != 0 {
		t.Fatalf("expected empty object for corrupt input, got %d keys", obj.Len())
	}
	if obj := ParseObjectOrEmpty(`{"a":"b"}`); obj.Text("a") != "b" {
		t.Fatalf("unexpected parse result: %v", obj.Map())
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	obj := NewObject()
	obj.SetString("url", "https://shop.example/result?a=1&b=<2>")
	if got := mustEncode(t, obj); got != `{"url":"https://shop.example/result?a=1&b=<2>"}` {
		t.Fatalf("unexpected encoding: %s", got)
	}
}

func TestValueText(t *testing.T) {
	obj := mustParseObject(t, `{"s":" x ","n":10.5,"t":true,"f":false,"o":{},"z":null}`)
	cases := map[string]string{"s": " x ", "n": "10.5", "t": "1", "f": "", "o": "", "z": "", "missing": ""}
	for key, want := range cases {
		if got := obj.Text(key); got != want {
			t.Fatalf("Text(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestValueTruthy(t *testing.T) {
	obj := mustParseObject(t, `{"a":true,"b":1,"c":"yes","d":"0","e":"false","f":0,"g":null,"h":[]}`)
	want := map[string]bool{"a": true, "b": true, "c": true, "d": false, "e": false, "f": false, "g": false, "h": false}
	for key, expected := range want {
		v, _ := obj.Get(key)
		if v.Truthy() != expected {
			t.Fatalf("Truthy(%q) = %v, want %v", key, v.Truthy(), expected)
		}
	}
}

func TestDeleteKeepsRemainingOrder(t *testing.T) {
	obj := mustParseObject(t, `{"a":1,"b":2,"c":3}`)
	obj.Delete("b")
	obj.Delete("missing")
	if got := mustEncode(t, obj); got != `{"a":1,"c":3}` {
		t.Fatalf("unexpected encoding after delete: %s", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	obj := mustParseObject(t, `{"a":{"b":1}}`)
	clone := obj.Clone()
	inner, _ := clone.Object("a")
	inner.Set("b", Int(2))

	if got := mustEncode(t, obj); got != `{"a":{"b":1}}` {
		t.Fatalf("original mutated through clone: %s", got)
	}
}

func TestFromInterfaceSortsKeys(t *testing.T) {
	v, err := FromInterface(map[string]interface{}{"b": 1.5, "a": []interface{}{"x", true, nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, _ := v.AsObject()
	if got := mustEncode(t, obj); got != `{"a":["x",true,null],"b":1.5}` {
		t.Fatalf("unexpected encoding: %s", got)
	}
	if _, err := FromInterface(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestMergeDepthBound(t *testing.T) {
	existing := mustParseObject(t, `{"a":{"b":{"c":1}}}`)
	incoming := mustParseObject(t, `{"a":{"b":{"d":2}}}`)

	if got := mustEncode(t, Merge(existing, incoming, 1)); got != `{"a":{"b":{"d":2}}}` {
		t.Fatalf("depth 1 merge mismatch: %s", got)
	}
	if got := mustEncode(t, Merge(existing, incoming, 3)); got != `{"a":{"b":{"c":1,"d":2}}}` {
		t.Fatalf("depth 3 merge mismatch: %s", got)
	}
}

func TestMergeNonPositiveDepthKeepsTopLevelKeys(t *testing.T) {
	existing := mustParseObject(t, `{"transaction_uid":"t1","a":{"b":1}}`)
	incoming := mustParseObject(t, `{"status":"PAYMENT:PAID","a":{"c":2}}`)

	want := `{"transaction_uid":"t1","a":{"c":2},"status":"PAYMENT:PAID"}`
	for _, depth := range []int{0, -3} {
		if got := mustEncode(t, Merge(existing, incoming, depth)); got != want {
			t.Fatalf("depth %d merge mismatch: %s", depth, got)
		}
	}
}

func TestMergeStripsOrderKey(t *testing.T) {
	existing := mustParseObject(t, `{"status":"A"}`)
	incoming := mustParseObject(t, `{"order":{"id":1},"status":"X"}`)

	merged := Merge(existing, incoming, 5)
	if merged.Has(OrderSnapshotKey) {
		t.Fatalf("expected order key to be stripped: %s", mustEncode(t, merged))
	}
	if merged.Text("status") != "X" {
		t.Fatalf("unexpected status: %s", merged.Text("status"))
	}
	if !incoming.Has(OrderSnapshotKey) {
		t.Fatal("incoming document must not be modified")
	}
}

func TestMergeKeepsUnmentionedKeys(t *testing.T) {
	existing := mustParseObject(t, `{"transaction_uid":"t1","payment":{"card":"visa","tries":1}}`)
	incoming := mustParseObject(t, `{"status":"PAYMENT:PAID","payment":{"tries":2}}`)

	got := mustEncode(t, Merge(existing, incoming, 5))
	want := `{"transaction_uid":"t1","payment":{"card":"visa","tries":2},"status":"PAYMENT:PAID"}`
	if got != want {
		t.Fatalf("merge mismatch:\n got %s\nwant %s", got, want)
	}
	if got := mustEncode(t, existing); got != `{"transaction_uid":"t1","payment":{"card":"visa","tries":1}}` {
		t.Fatalf("existing document must not be modified: %s", got)
	}
}

func TestMergeReplacesArraysAndScalarsWholesale(t *testing.T) {
	existing := mustParseObject(t, `{"items":[1,2,3],"meta":{"a":1}}`)
	incoming := mustParseObject(t, `{"items":[4],"meta":"flat"}`)

	if got := mustEncode(t, Merge(existing, incoming, 5)); got != `{"items":[4],"meta":"flat"}` {
		t.Fatalf("unexpected merge: %s", got)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	existing := mustParseObject(t, `{"a":{"b":1}}`)
	incoming := mustParseObject(t, `{"a":{"c":2},"status":"PAYMENT:PAID"}`)

	once := Merge(existing, incoming, 5)
	twice := Merge(once, incoming, 5)
	if !once.Equal(twice) {
		t.Fatalf("merge not idempotent: %s vs %s", mustEncode(t, once), mustEncode(t, twice))
	}
}

package model

import "testing"

func TestFeatureMapColumn(t *testing.T) {
	in := FeatureMap{"tempo": 117.5, "rms": 0.25}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out FeatureMap
	if err := out.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if out["tempo"] != 117.5 || out["rms"] != 0.25 {
		t.Fatalf("scanned %v", out)
	}

	var fromString FeatureMap
	if err := fromString.Scan(v.(string)); err != nil || len(fromString) != 2 {
		t.Fatalf("scan string: %v %v", fromString, err)
	}

	var empty FeatureMap
	for _, src := range []interface{}{nil, []byte("null"), ""} {
		if err := empty.Scan(src); err != nil || empty != nil {
			t.Fatalf("scan %v: %v %v", src, empty, err)
		}
	}
	if err := empty.Scan(42); err == nil {
		t.Fatal("expected error for integer column")
	}

	if v, err := FeatureMap(nil).Value(); err != nil || v != nil {
		t.Fatalf("nil map value: %v %v", v, err)
	}
}

func TestNewClassificationID(t *testing.T) {
	a, b := NewClassificationID(), NewClassificationID()
	if a == b || len(a) != 36 {
		t.Fatalf("ids %q %q", a, b)
	}
}

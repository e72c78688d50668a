package models

import "testing"

// TestParseSetType verifies canonical names, abbreviations and localized
// spellings all resolve to the same set type.
func TestParseSetType(t *testing.T) {
	cases := []struct {
		input string
		want  SetType
	}{
		{"REGULAR", SetRegular},
		{"working", SetRegular},
		{"Warmup", SetWarmup},
		{"warm-up", SetWarmup},
		{"WU", SetWarmup},
		{"Aufwärmen", SetWarmup},
		{"drop", SetDrop},
		{" Dropset ", SetDrop},
	}
	for _, tc := range cases {
		got, err := ParseSetType(tc.input)
		if err != nil {
			t.Errorf("ParseSetType(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSetType(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestParseSetTypeUnknown verifies unknown names are rejected instead of
// silently defaulting to REGULAR.
func TestParseSetTypeUnknown(t *testing.T) {
	if _, err := ParseSetType("superset"); err == nil {
		t.Fatal("expected error for unknown set type")
	}
}

// TestSetTypeNext verifies the toggle cycle wraps around after DROP.
func TestSetTypeNext(t *testing.T) {
	got := SetRegular
	want := []SetType{SetWarmup, SetDrop, SetRegular, SetWarmup}
	for i, w := range want {
		got = got.Next()
		if got != w {
			t.Fatalf("step %d: Next() = %q, want %q", i, got, w)
		}
	}
}

// TestSetTypeValid verifies only canonical values report as valid.
func TestSetTypeValid(t *testing.T) {
	for _, st := range []SetType{SetRegular, SetWarmup, SetDrop} {
		if !st.Valid() {
			t.Errorf("%q.Valid() = false, want true", st)
		}
	}
	if SetType("warmup").Valid() {
		t.Error("lowercase value should not be valid without parsing")
	}
}

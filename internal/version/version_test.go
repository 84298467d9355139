package version

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseFullVersion(t *testing.T) {
	v, err := Parse("2.4.1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != (Version{Major: 2, Minor: 4, Patch: 1}) {
		t.Fatalf("unexpected version %+v", v)
	}
	if !v.IsFinal() {
		t.Fatalf("expected final version")
	}
	if v.Type() != TypeFinal {
		t.Fatalf("expected final type, got %s", v.Type())
	}
}

func TestParseStripsMarkerAndKeepsPrerelease(t *testing.T) {
	v, err := Parse(" v1.2.3-rc.1 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Prerelease != "rc.1" || v.Major != 1 || v.Minor != 2 || v.Patch != 3 {
		t.Fatalf("unexpected version %+v", v)
	}
	if v.Type() != TypeReleaseCandidate {
		t.Fatalf("expected release candidate, got %s", v.Type())
	}
	if got := v.Tag(); got != "v1.2.3-rc.1" {
		t.Fatalf("expected tag v1.2.3-rc.1, got %s", got)
	}
	if got := v.String(); got != "1.2.3-rc.1" {
		t.Fatalf("expected 1.2.3-rc.1, got %s", got)
	}
}

func TestParsePartial(t *testing.T) {
	v, err := ParsePartial("1.10")
	if err != nil {
		t.Fatalf("parse partial: %v", err)
	}
	if v != (Version{Major: 1, Minor: 10}) {
		t.Fatalf("unexpected version %+v", v)
	}
	if _, err := Parse("1.10"); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion without partial support, got %v", err)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "1", "v", "a.b.c", "1.2.3.4", "1.2.3+build.5", "1.2.x", "1.2.3-"} {
		_, err := ParsePartial(input)
		if err == nil {
			t.Fatalf("expected %q to be rejected", input)
		}
		var invalid *InvalidVersionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidVersionError for %q, got %T", input, err)
		}
		if invalid.Text != input {
			t.Fatalf("expected error to carry %q, got %q", input, invalid.Text)
		}
	}
}

func TestVersionTypes(t *testing.T) {
	cases := map[string]Type{
		"1.0.0":         TypeFinal,
		"1.0.0-RC.2":    TypeReleaseCandidate,
		"1.0.0-rc1":     TypeReleaseCandidate,
		"1.0.0-beta.3":  TypeBeta,
		"1.0.0-alpha":   TypeAlpha,
		"1.0.0-nightly": TypeFinal,
	}
	for input, want := range cases {
		if got := MustParse(input).Type(); got != want {
			t.Fatalf("%s: expected %s, got %s", input, want, got)
		}
	}
}

func TestBumps(t *testing.T) {
	base := MustParse("1.4.7-rc.2")
	cases := []struct {
		name string
		got  Version
		want string
	}{
		{"major", base.BumpMajor(), "2.0.0"},
		{"minor", base.BumpMinor(), "1.5.0"},
		{"patch", base.BumpPatch(), "1.4.8"},
		{"rc", base.BumpRC(3), "1.4.7-rc.3"},
	}
	for _, tc := range cases {
		if tc.got.String() != tc.want {
			t.Fatalf("%s bump: expected %s, got %s", tc.name, tc.want, tc.got)
		}
	}
	if base.String() != "1.4.7-rc.2" {
		t.Fatalf("bump mutated receiver: %s", base)
	}
}

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		lower, higher string
	}{
		{"1.0.0-rc.3", "1.0.0-rc.30"},
		{"1.2.3-rc.9", "1.2.3"},
		{"1.0.0-rc1", "1.0.0-rc10"},
		{"1.0.0-alpha.1", "1.0.0-beta.1"},
		{"1.0.0-rc", "1.0.0-rc.1"},
		{"1.9.9", "1.10.0"},
		{"1.0.0", "2.0.0-alpha"},
		{"0.9.0", "0.9.1"},
	}
	for _, tc := range cases {
		lo, hi := MustParse(tc.lower), MustParse(tc.higher)
		if !lo.Less(hi) {
			t.Fatalf("expected %s < %s", tc.lower, tc.higher)
		}
		if Compare(hi, lo) != 1 {
			t.Fatalf("expected %s > %s", tc.higher, tc.lower)
		}
	}
}

func TestCompareIsTotal(t *testing.T) {
	inputs := []string{
		"1.0.0", "1.0.0-rc.1", "1.0.0-rc.01", "1.0.0-rc.10", "1.0.0-beta",
		"1.0.0-beta.2", "1.0.0-x.y", "1.1.0", "0.0.1", "2.0.0-alpha.1",
	}
	versions := make([]Version, 0, len(inputs))
	for _, in := range inputs {
		versions = append(versions, MustParse(in))
	}
	for _, a := range versions {
		for _, b := range versions {
			outcomes := 0
			if a.Less(b) {
				outcomes++
			}
			if a.Equal(b) {
				outcomes++
			}
			if b.Less(a) {
				outcomes++
			}
			if outcomes != 1 {
				t.Fatalf("expected exactly one ordering outcome for %s and %s, got %d", a, b, outcomes)
			}
			if a.Equal(b) && a != b {
				t.Fatalf("distinct values %s and %s compared equal", a, b)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, in := range []string{"0.0.0", "v3.2.1", "10.20.30-rc.4", "1.0.0-beta.11.x", "V4.0.0-alpha"} {
		first := MustParse(in)
		second, err := Parse(first.Format(true))
		if err != nil {
			t.Fatalf("reparse %s: %v", first, err)
		}
		if !first.Equal(second) {
			t.Fatalf("round trip changed %s into %s", first, second)
		}
	}
}

func TestTextMarshalling(t *testing.T) {
	data, err := json.Marshal(map[string]Version{"v": MustParse("v1.2.0-rc.1")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"v":"1.2.0-rc.1"}` {
		t.Fatalf("unexpected json %s", data)
	}
	var back map[string]Version
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["v"].Prerelease != "rc.1" {
		t.Fatalf("unexpected version %+v", back["v"])
	}
	if err := json.Unmarshal([]byte(`{"v":"one"}`), &back); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("expected invalid version, got %v", err)
	}
}

func TestSortDescending(t *testing.T) {
	versions := []Version{MustParse("1.0.0"), MustParse("1.2.0-rc.0"), MustParse("1.1.0"), MustParse("1.2.0")}
	SortDescending(versions)
	want := []string{"1.2.0", "1.2.0-rc.0", "1.1.0", "1.0.0"}
	for i, v := range versions {
		if v.String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], v)
		}
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags([]string{"v1.1.0", "latest", "v1.0.0", "1.1.0", "v2.0.0-rc.1", "docs-1"}, "v")
	want := []string{"1.0.0", "1.1.0", "2.0.0-rc.1"}
	if len(got) != len(want) {
		t.Fatalf("expected %d versions, got %v", len(want), got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFilterConstraint(t *testing.T) {
	versions := []Version{MustParse("0.9.0"), MustParse("1.0.0"), MustParse("1.5.0-rc.1"), MustParse("1.7.2"), MustParse("2.0.0")}
	got, err := Filter(versions, ">=1.0.0 <2.0.0")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(got) != 2 || got[0].String() != "1.0.0" || got[1].String() != "1.7.2" {
		t.Fatalf("unexpected filter result %v", got)
	}
	all, err := Filter(versions, "")
	if err != nil || len(all) != len(versions) {
		t.Fatalf("empty constraint should keep everything, got %v (%v)", all, err)
	}
	if _, err := Filter(versions, ">=banana"); err == nil {
		t.Fatalf("expected constraint error")
	}
}

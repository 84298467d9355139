package policy

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseAction(t *testing.T) {
	cases := map[string]Action{"": Warn, "IGNORE": Ignore, " warn ": Warn, "error": Error}
	for input, want := range cases {
		got, err := ParseAction(input)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParseAction("panic"); err == nil {
		t.Fatalf("expected unknown action error")
	}
}

func TestActionYAML(t *testing.T) {
	var doc struct {
		Action Action `yaml:"action"`
	}
	if err := yaml.Unmarshal([]byte("action: Error\n"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Action != Error {
		t.Fatalf("expected error action, got %s", doc.Action)
	}
	if err := yaml.Unmarshal([]byte("action: loud\n"), &doc); err == nil {
		t.Fatalf("expected invalid action to fail")
	}
}

func TestApply(t *testing.T) {
	d, err := Apply(Ignore, "missing_ticket", "msg", 3, nil)
	if d != nil || err != nil {
		t.Fatalf("ignore should produce nothing, got %v %v", d, err)
	}

	d, err = Apply(Warn, "missing_ticket", "3 changes without ticket", 3, []string{"a"})
	if err != nil || d == nil {
		t.Fatalf("warn should produce a diagnostic, got %v %v", d, err)
	}
	if d.Level != LevelWarn || d.Count != 3 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}

	_, err = Apply(Error, "missing_ticket", "3 changes without ticket", 3, []string{"a"})
	if !errors.Is(err, ErrViolation) {
		t.Fatalf("expected ErrViolation, got %v", err)
	}
	var v *Violation
	if !errors.As(err, &v) || v.Count != 3 || len(v.Samples) != 1 {
		t.Fatalf("expected violation with count and samples, got %#v", err)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Level: LevelWarn, Message: "7 changes without ticket", Count: 7, Samples: []string{"one", "two"}}
	out := d.String()
	if !strings.HasPrefix(out, "[WARN] 7 changes") || !strings.Contains(out, "... and 5 more") {
		t.Fatalf("unexpected rendering %q", out)
	}
}

func TestSampleAndTruncate(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}
	if got := Sample(items, DefaultSampleLimit); len(got) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(got))
	}
	if got := Sample(items[:2], DefaultSampleLimit); len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	long := strings.Repeat("x", 100)
	if got := Truncate(long, DefaultSampleWidth); len(got) != 80 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation %q", got)
	}
	if Truncate("short", 80) != "short" {
		t.Fatalf("short text should be unchanged")
	}
}

func TestDiagnosticsWarnings(t *testing.T) {
	var ds Diagnostics
	ds.Add(&Diagnostic{Level: LevelInfo, Message: "i"})
	ds.Add(nil)
	ds.Add(&Diagnostic{Level: LevelWarn, Message: "w"})
	if len(ds) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(ds))
	}
	if w := ds.Warnings(); len(w) != 1 || w[0].Message != "w" {
		t.Fatalf("unexpected warnings %v", w)
	}
}

package render

import (
	"errors"
	"reflect"
	"testing"
)

func TestRenderBasic(t *testing.T) {
	out, err := Render("title", "Release {{ .version }}", map[string]any{"version": "1.2.0"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Release 1.2.0" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderUndefinedVariableFails(t *testing.T) {
	_, err := Render("title", "Release {{ .nope }}", map[string]any{"version": "1.2.0"}, nil)
	if !errors.Is(err, ErrTemplate) {
		t.Fatalf("expected ErrTemplate, got %v", err)
	}
	var te *TemplateError
	if !errors.As(err, &te) || te.Name != "title" {
		t.Fatalf("expected TemplateError for title, got %#v", err)
	}
}

func TestRenderSyntaxErrorFails(t *testing.T) {
	if _, err := Render("entry", "{{ if .title }}", map[string]any{"title": "x"}, nil); !errors.Is(err, ErrTemplate) {
		t.Fatalf("expected ErrTemplate for syntax error, got %v", err)
	}
}

func TestRenderHelpers(t *testing.T) {
	data := map[string]any{
		"labels":  []string{"bug", "ui"},
		"numbers": []int{4, 5},
		"empty":   "",
	}
	out, err := Render("helpers", `{{ join ", " .labels }}|{{ join "/" .numbers }}|{{ default "none" .empty }}|{{ upper "x" }}`, data, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "bug, ui|4/5|none|X" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	in := "  Multiple   spaces\tshould   collapse  \n\n\n   second line  "
	want := "Multiple spaces should collapse\nsecond line"
	if got := Finish(in); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeLineBreaks(t *testing.T) {
	cases := map[string]string{
		"first<br>second":         "first\n\nsecond",
		"first<br/>second":        "first\n\nsecond",
		"## Heading<BR />\nentry": "## Heading\n\nentry",
		"a\n\n\nb":                "a\nb",
	}
	for in, want := range cases {
		if got := Finish(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestNonBreakingSpaceSurvivesUntilExpand(t *testing.T) {
	inner := Normalize("Test&nbsp;&nbsp;two   spaces")
	if inner == "Test  two spaces" {
		t.Fatalf("nbsp expanded too early")
	}
	outer := Normalize("Wrapped:\n   " + inner + "   ")
	if got := Expand(outer); got != "Wrapped:\nTest  two spaces" {
		t.Fatalf("unexpected output %q", got)
	}
	if got := Finish("&nbsp;&nbsp;indented"); got != "  indented" {
		t.Fatalf("leading nbsp should not be trimmed, got %q", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	in := "- title<br>&nbsp;&nbsp;by   @octo\n\n  next  "
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Fatalf("normalize not idempotent: %q vs %q", once, twice)
	}
	if got := Expand(once); got != "- title\n\n  by @octo\nnext" {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestVariables(t *testing.T) {
	src := `{{ .title }}{{ range .categories }}{{ .name }}{{ $.version }}{{ end }}{{ if .authors }}{{ join ", " .labels }}{{ end }}`
	got, err := Variables(src, nil)
	if err != nil {
		t.Fatalf("variables: %v", err)
	}
	want := []string{"authors", "categories", "labels", "title", "version"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("title", "Release {{ .version }}", []string{"version"}, nil); err != nil {
		t.Fatalf("expected valid template, got %v", err)
	}
	err := Validate("title", "Release {{ .tag }}", []string{"version"}, nil)
	if !errors.Is(err, ErrTemplate) {
		t.Fatalf("expected ErrTemplate, got %v", err)
	}
	err = Validate("entry", "{{ render_entry . }}", []string{"title"}, nil)
	var te *TemplateError
	if !errors.As(err, &te) || te.Name != "entry" {
		t.Fatalf("expected parse failure for unknown function, got %v", err)
	}
}

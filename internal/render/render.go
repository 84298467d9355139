// Package render executes release-note templates and applies HTML-like
// whitespace normalization to their output.
package render

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// ErrTemplate is matched by every *TemplateError.
var ErrTemplate = errors.New("template error")

// TemplateError reports a syntax error or an undefined variable. No partial
// output accompanies it.
type TemplateError struct {
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render: template %q: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

func (e *TemplateError) Is(target error) bool { return target == ErrTemplate }

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"join":    join,
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"trim":    strings.TrimSpace,
		"default": defaultValue,
	}
}

// Render executes src against data. Referencing a missing key fails.
func Render(name, src string, data map[string]any, extra template.FuncMap) (string, error) {
	tmpl, err := compile(name, src, extra)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", &TemplateError{Name: name, Err: err}
	}
	return b.String(), nil
}

func compile(name, src string, extra template.FuncMap) (*template.Template, error) {
	funcs := Funcs()
	for k, v := range extra {
		funcs[k] = v
	}
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(funcs).Parse(src)
	if err != nil {
		return nil, &TemplateError{Name: name, Err: err}
	}
	return tmpl, nil
}

// join renders any slice joined by sep.
func join(sep string, items any) string {
	if items == nil {
		return ""
	}
	if ss, ok := items.([]string); ok {
		return strings.Join(ss, sep)
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Sprint(items)
	}
	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts = append(parts, fmt.Sprint(rv.Index(i).Interface()))
	}
	return strings.Join(parts, sep)
}

// defaultValue returns fallback when value is nil or renders empty.
func defaultValue(fallback string, value any) string {
	if value == nil {
		return fallback
	}
	if s := fmt.Sprint(value); s != "" {
		return s
	}
	return fallback
}

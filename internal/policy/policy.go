// Package policy decides how detected anomalies are handled: ignored,
// reported as diagnostics, or turned into a failing error.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the configured response to an anomaly.
type Action string

const (
	Ignore Action = "ignore"
	Warn   Action = "warn"
	Error  Action = "error"
)

const (
	// DefaultSampleLimit bounds the offending items carried by diagnostics.
	DefaultSampleLimit = 5
	// DefaultSampleWidth bounds each sample line.
	DefaultSampleWidth = 80
)

// ParseAction normalizes a configured action. Empty input yields Warn.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return Warn, nil
	case Ignore:
		return Ignore, nil
	case Warn:
		return Warn, nil
	case Error:
		return Error, nil
	}
	return "", fmt.Errorf("policy: unknown action %q (want ignore, warn or error)", value)
}

// UnmarshalYAML lets config files use the plain action names.
func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseAction(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Level is the severity of a diagnostic.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Diagnostic is a non-fatal finding returned to the caller.
type Diagnostic struct {
	Level   Level    `json:"level" yaml:"level"`
	Code    string   `json:"code" yaml:"code"`
	Message string   `json:"message" yaml:"message"`
	Count   int      `json:"count,omitempty" yaml:"count,omitempty"`
	Samples []string `json:"samples,omitempty" yaml:"samples,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(d.Level)), d.Message)
	for _, s := range d.Samples {
		b.WriteString("\n  - ")
		b.WriteString(s)
	}
	if extra := d.Count - len(d.Samples); extra > 0 && len(d.Samples) > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more", extra)
	}
	return b.String()
}

// Diagnostics is an ordered collection of findings.
type Diagnostics []Diagnostic

// Add appends d when it is non-nil.
func (ds *Diagnostics) Add(d *Diagnostic) {
	if d != nil {
		*ds = append(*ds, *d)
	}
}

// Warnings returns the diagnostics at warn level or above.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Level == LevelWarn || d.Level == LevelError {
			out = append(out, d)
		}
	}
	return out
}

// ErrViolation is matched by every *Violation.
var ErrViolation = errors.New("policy violation")

// Violation is returned when a policy configured as error is triggered.
type Violation struct {
	Code    string
	Message string
	Count   int
	Samples []string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("policy %s: %s (%d offending)", v.Code, v.Message, v.Count)
}

func (v *Violation) Is(target error) bool { return target == ErrViolation }

// Apply is the single decision point for a triggered check. Ignore yields
// nothing, Warn yields a diagnostic and Error yields a *Violation.
func Apply(action Action, code, message string, count int, samples []string) (*Diagnostic, error) {
	switch action {
	case Ignore:
		return nil, nil
	case Error:
		return nil, &Violation{Code: code, Message: message, Count: count, Samples: samples}
	}
	return &Diagnostic{Level: LevelWarn, Code: code, Message: message, Count: count, Samples: samples}, nil
}

// Sample returns at most limit items.
func Sample(items []string, limit int) []string {
	if limit <= 0 || len(items) <= limit {
		return append([]string(nil), items...)
	}
	return append([]string(nil), items[:limit]...)
}

// Truncate shortens text to width runes, marking the cut with "...".
func Truncate(text string, width int) string {
	runes := []rune(text)
	if width <= 0 || len(runes) <= width {
		return text
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

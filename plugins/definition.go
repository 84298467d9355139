package plugins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kingrea/releasekit/internal/notes"
	"github.com/kingrea/releasekit/internal/ticket"
)

// Kind selects what a definition contributes.
type Kind string

const (
	KindPattern  Kind = "pattern"
	KindCategory Kind = "category"
)

// Definition describes one extra ticket pattern or release note category
// loaded from .releasekit/plugins.
//
// Pattern definitions use Order, Strategy and Pattern; category definitions
// use Name, Labels, Order and Alias.
type Definition struct {
	Kind        Kind            `json:"kind" yaml:"kind"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Order       int             `json:"order" yaml:"order"`
	Strategy    ticket.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Pattern     string          `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Labels      []string        `json:"labels,omitempty" yaml:"labels,omitempty"`
	Alias       string          `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def Definition) Normalized() Definition {
	clone := Definition{
		Kind:        Kind(strings.ToLower(strings.TrimSpace(string(def.Kind)))),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Order:       def.Order,
		Strategy:    ticket.Strategy(strings.TrimSpace(string(def.Strategy))),
		Pattern:     strings.TrimSpace(def.Pattern),
		Alias:       strings.TrimSpace(def.Alias),
	}
	for _, label := range def.Labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			clone.Labels = append(clone.Labels, trimmed)
		}
	}
	return clone
}

// Validate ensures the definition is usable by the extractor or assembler.
func (def Definition) Validate() error {
	normalized := def.Normalized()
	switch normalized.Kind {
	case KindPattern:
		if !normalized.Strategy.Valid() {
			return fmt.Errorf("plugin pattern %d: unknown strategy %q", normalized.Order, normalized.Strategy)
		}
		if normalized.Pattern == "" {
			return fmt.Errorf("plugin pattern %d: pattern is required", normalized.Order)
		}
		if _, err := regexp.Compile(normalized.Pattern); err != nil {
			return fmt.Errorf("plugin pattern %d: %w", normalized.Order, err)
		}
	case KindCategory:
		if normalized.Name == "" {
			return fmt.Errorf("plugin category: name is required")
		}
	case "":
		return fmt.Errorf("plugin: kind is required")
	default:
		return fmt.Errorf("plugin: unknown kind %q", normalized.Kind)
	}
	return nil
}

// TicketPattern converts a pattern definition.
func (def Definition) TicketPattern() ticket.Pattern {
	n := def.Normalized()
	return ticket.Pattern{Order: n.Order, Strategy: n.Strategy, Pattern: n.Pattern, Description: n.Description}
}

// Category converts a category definition.
func (def Definition) Category() notes.Category {
	n := def.Normalized()
	return notes.Category{Name: n.Name, Labels: n.Labels, Order: n.Order, Alias: n.Alias}
}

// internal/tui/app.go
//
// Terminal preview of a planned release. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: the planned release and the list of notes
// 2. Update: keys move the selection or toggle the full release view
// 3. View: list on the left, rendered entry and diagnostics on the right

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/releasekit/internal/notes"
	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/release"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// noteItem implements list.Item for one note
type noteItem struct {
	note     notes.Note
	category string
	entry    string
}

func (i noteItem) Title() string { return i.note.Title }

func (i noteItem) Description() string {
	parts := []string{i.category}
	if i.note.ShortLink != "" {
		parts = append(parts, i.note.ShortLink)
	}
	return strings.Join(parts, " · ")
}

func (i noteItem) FilterValue() string { return i.note.Title }

// Preview is the bubbletea model for `releasekit notes --preview`.
type Preview struct {
	result      release.Result
	notes       list.Model
	showRelease bool

	width  int
	height int
}

// NewPreview builds the note list from the result's groups. Entries are
// rendered once up front with formatter.
func NewPreview(res release.Result, formatter *notes.Formatter) *Preview {
	var items []list.Item
	for _, group := range res.Groups {
		for _, note := range group.Notes {
			entry := ""
			if formatter != nil {
				rendered, err := formatter.Entry(note)
				if err != nil {
					rendered = "error: " + err.Error()
				}
				entry = rendered
			}
			items = append(items, noteItem{note: note, category: group.Category.Name, entry: entry})
		}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Release " + res.Target.String()
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return &Preview{result: res, notes: l}
}

// Run starts an interactive preview on the terminal.
func Run(res release.Result, formatter *notes.Formatter, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(NewPreview(res, formatter), opts...).Run()
	return err
}

func (p *Preview) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (p *Preview) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		left, _ := p.columns()
		p.notes.SetSize(max(20, left-4), max(5, msg.Height-8))
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return p, tea.Quit
		case "tab":
			p.showRelease = !p.showRelease
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.notes, cmd = p.notes.Update(msg)
	return p, cmd
}

func (p *Preview) columns() (int, int) {
	width := p.width
	if width <= 0 {
		width = 100
	}
	right := max(32, width/2)
	left := width - right - 2
	if left < 30 {
		return width, 0
	}
	return left, right
}

func (p *Preview) View() string {
	left, right := p.columns()
	header := headerStyle.Render(p.header())
	leftBox := panelStyle.Width(max(20, left-2)).Render(p.notes.View())
	body := leftBox
	if right > 0 {
		rightBox := panelStyle.Width(max(20, right-2)).Render(p.detail())
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}
	footer := mutedStyle.Render("↑/↓ select · tab toggle release · q quit")
	return strings.Join([]string{header, body, footer}, "\n")
}

func (p *Preview) header() string {
	res := p.result
	parts := []string{"⬡ " + res.Output.Title}
	if res.Comparison != nil {
		parts = append(parts, "since "+res.Comparison.String())
	}
	if res.Branch.Name != "" {
		branch := "branch " + res.Branch.Name
		if res.CreateBranch {
			branch += " (new from " + res.Branch.Source + ")"
		}
		parts = append(parts, branch)
	}
	return strings.Join(parts, " · ")
}

func (p *Preview) detail() string {
	var sections []string
	if p.showRelease {
		sections = append(sections, titleStyle.Render("RELEASE"), p.result.Output.Release)
	} else if item, ok := p.notes.SelectedItem().(noteItem); ok {
		sections = append(sections, titleStyle.Render("ENTRY · "+item.category), item.entry)
		if item.note.Description != "" {
			sections = append(sections, "", mutedStyle.Render(item.note.Description))
		}
	} else {
		sections = append(sections, mutedStyle.Render("No notes in this release."))
	}
	sections = append(sections, "", p.diagnostics())
	return strings.Join(sections, "\n")
}

func (p *Preview) diagnostics() string {
	diags := p.result.Diagnostics
	if len(diags) == 0 {
		return mutedStyle.Render("No diagnostics.")
	}
	lines := []string{titleStyle.Render(fmt.Sprintf("DIAGNOSTICS · %d", len(diags)))}
	for _, d := range diags {
		style := mutedStyle
		switch d.Level {
		case policy.LevelWarn:
			style = warnStyle
		case policy.LevelError:
			style = errorStyle
		}
		lines = append(lines, style.Render(d.String()))
	}
	return strings.Join(lines, "\n")
}

// Package release wires the version, consolidation and note packages into a
// single planning run. Like its parts it performs no I/O.
package release

import (
	"fmt"

	"github.com/kingrea/releasekit/internal/branch"
	"github.com/kingrea/releasekit/internal/consolidate"
	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/notes"
	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/ticket"
	"github.com/kingrea/releasekit/internal/version"
)

// Settings are the resolved policies for a run.
type Settings struct {
	Patterns      []ticket.Pattern
	Consolidation bool
	Include       []consolidate.Kind

	NoTicketAction      policy.Action
	PartialTicketAction policy.Action
	DuplicateAction     policy.Action
	GapAction           policy.Action

	// Consider is a constraint expression restricting the known versions.
	Consider   string
	DocsPolicy branch.DocsPolicy
	Branch     branch.Strategy
	// CreateBranches allows the publishing step to create missing release
	// branches.
	CreateBranches bool

	Assembler notes.AssemblerConfig
	Templates notes.Templates
}

// DefaultSettings mirrors the defaults of a freshly initialized project.
func DefaultSettings() Settings {
	return Settings{
		Patterns:            ticket.DefaultPatterns(),
		Consolidation:       true,
		NoTicketAction:      policy.Warn,
		PartialTicketAction: policy.Warn,
		DuplicateAction:     policy.Warn,
		GapAction:           policy.Warn,
		DocsPolicy:          branch.DocsFinalOnly,
		Branch:              branch.DefaultStrategy(),
		CreateBranches:      true,
		Templates:           notes.DefaultTemplates(),
	}
}

// Input is the materialized repository state for one run.
type Input struct {
	Target          string
	KnownVersions   []version.Version
	Branches        []string
	Commits         []model.Commit
	PullRequests    map[int]model.PullRequest
	Tickets         map[string]model.Ticket
	EarlierReleases []model.ReleaseRecord
}

// InputFromSnapshot builds an Input from a snapshot, reading versions from
// its tags.
func InputFromSnapshot(target string, snap model.Snapshot, tagPrefix string) Input {
	return Input{
		Target:          target,
		KnownVersions:   version.ParseTags(snap.Tags, tagPrefix),
		Branches:        snap.Branches,
		Commits:         snap.Commits,
		PullRequests:    snap.PullRequestIndex(),
		Tickets:         snap.TicketIndex(),
		EarlierReleases: snap.Releases,
	}
}

// Result is everything a run decided and rendered.
type Result struct {
	Target         version.Version      `json:"target"`
	Comparison     *version.Version     `json:"comparison,omitempty"`
	DocsComparison *version.Version     `json:"docs_comparison,omitempty"`
	Branch         branch.Plan          `json:"branch"`
	CreateBranch   bool                 `json:"create_branch"`
	Changes        []consolidate.Change `json:"-"`
	Notes          []notes.Note         `json:"notes"`
	Groups         []notes.Group        `json:"groups"`
	Output         notes.Output         `json:"output"`
	Diagnostics    policy.Diagnostics   `json:"diagnostics,omitempty"`
}

// Planner runs the pipeline with fixed settings. It is safe for concurrent
// use.
type Planner struct {
	settings     Settings
	consolidator *consolidate.Consolidator
	assembler    *notes.Assembler
	formatter    *notes.Formatter
}

// NewPlanner compiles patterns and templates up front so configuration
// errors surface before any run.
func NewPlanner(s Settings) (*Planner, error) {
	extractor, err := ticket.NewExtractor(s.Patterns)
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	assembler, err := notes.NewAssembler(s.Assembler)
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	if err := notes.ValidateTemplates(s.Templates); err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	if err := version.ValidateConstraint(s.Consider); err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	return &Planner{
		settings:     s,
		consolidator: consolidate.New(extractor, consolidate.WithConsolidation(s.Consolidation)),
		assembler:    assembler,
		formatter:    notes.NewFormatter(s.Templates),
	}, nil
}

// Settings returns the planner's settings.
func (p *Planner) Settings() Settings { return p.settings }

// Formatter returns the formatter used for rendering.
func (p *Planner) Formatter() *notes.Formatter { return p.formatter }

// Versions resolves the target and its comparison points without touching
// changes.
func (p *Planner) Versions(target string, known []version.Version) (Result, error) {
	var res Result
	v, err := version.Parse(target)
	if err != nil {
		return res, err
	}
	res.Target = v
	considered, err := version.Filter(known, p.settings.Consider)
	if err != nil {
		return res, err
	}
	if cmp, ok := branch.FindComparison(v, considered); ok {
		res.Comparison = &cmp
	}
	if cmp, ok := branch.FindComparisonForDocs(v, considered, p.settings.DocsPolicy); ok {
		res.DocsComparison = &cmp
	}
	if res.Comparison != nil {
		d, err := branch.CheckGap(*res.Comparison, v, p.settings.GapAction)
		if err != nil {
			return res, err
		}
		res.Diagnostics.Add(d)
	}
	return res, nil
}

// Plan runs the whole pipeline. Errors are invalid versions, template
// failures or policy violations; warnings come back in Result.Diagnostics.
func (p *Planner) Plan(in Input) (Result, error) {
	res, err := p.Versions(in.Target, in.KnownVersions)
	if err != nil {
		return Result{}, err
	}
	res.Branch = branch.DetermineReleaseBranch(res.Target, in.Branches, in.KnownVersions, p.settings.Branch)
	res.CreateBranch = res.Branch.ShouldCreate && p.settings.CreateBranches

	changes := p.consolidator.Consolidate(in.Commits, in.PullRequests)
	changes = consolidate.FilterByInclusion(changes, p.settings.Include...)

	var lookup func(string) (model.Ticket, bool)
	if in.Tickets != nil {
		lookup = func(key string) (model.Ticket, bool) {
			t, ok := in.Tickets[key]
			return t, ok
		}
	}
	changes, diags, err := consolidate.AttachTickets(changes, lookup, p.settings.PartialTicketAction)
	if err != nil {
		return Result{}, err
	}
	res.Diagnostics = append(res.Diagnostics, diags...)

	diags, err = consolidate.HandleMissingTickets(changes, p.settings.NoTicketAction)
	if err != nil {
		return Result{}, err
	}
	res.Diagnostics = append(res.Diagnostics, diags...)

	changes, diags, err = consolidate.CheckInterReleaseDuplicates(changes, res.Target, in.EarlierReleases, p.settings.DuplicateAction)
	if err != nil {
		return Result{}, err
	}
	res.Diagnostics = append(res.Diagnostics, diags...)
	res.Changes = changes

	res.Notes = make([]notes.Note, 0, len(changes))
	for _, change := range changes {
		res.Notes = append(res.Notes, p.assembler.CreateNote(change, nil))
	}
	res.Groups = p.assembler.GroupByCategory(res.Notes)

	out, err := p.formatter.Format(res.Target, res.Groups)
	if err != nil {
		return Result{}, err
	}
	res.Output = out
	return res, nil
}

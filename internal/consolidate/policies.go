package consolidate

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/version"
)

const (
	CodeMissingTicket    = "missing_ticket"
	CodePartialTicket    = "partial_ticket"
	CodeInterReleaseDupe = "inter_release_duplicate"
)

// HandleMissingTickets applies action to every change not grouped under a
// ticket.
func HandleMissingTickets(changes []Change, action policy.Action) (policy.Diagnostics, error) {
	var offending []string
	for _, change := range changes {
		if change.HasTicket() {
			continue
		}
		offending = append(offending, describe(change))
	}
	if len(offending) == 0 {
		return nil, nil
	}
	msg := fmt.Sprintf("%d change(s) without a ticket", len(offending))
	d, err := policy.Apply(action, CodeMissingTicket, msg, len(offending), policy.Sample(offending, policy.DefaultSampleLimit))
	if err != nil {
		return nil, err
	}
	var out policy.Diagnostics
	out.Add(d)
	return out, nil
}

// AttachTickets resolves ticket metadata for ticket-kind changes. Keys the
// lookup cannot resolve are reported under action.
func AttachTickets(changes []Change, lookup func(key string) (model.Ticket, bool), action policy.Action) ([]Change, policy.Diagnostics, error) {
	out := make([]Change, len(changes))
	copy(out, changes)
	if lookup == nil {
		return out, nil, nil
	}
	var unresolved []string
	for i := range out {
		if !out[i].HasTicket() {
			continue
		}
		t, ok := lookup(out[i].Key)
		if !ok {
			unresolved = append(unresolved, describe(out[i]))
			continue
		}
		out[i].Ticket = &t
	}
	if len(unresolved) == 0 {
		return out, nil, nil
	}
	msg := fmt.Sprintf("%d ticket(s) referenced but not found", len(unresolved))
	d, err := policy.Apply(action, CodePartialTicket, msg, len(unresolved), policy.Sample(unresolved, policy.DefaultSampleLimit))
	if err != nil {
		return nil, nil, err
	}
	var diags policy.Diagnostics
	diags.Add(d)
	return out, diags, nil
}

// FilterByInclusion keeps only changes of the given kinds. No kinds keeps
// everything.
func FilterByInclusion(changes []Change, kinds ...Kind) []Change {
	if len(kinds) == 0 {
		return changes
	}
	allowed := sets.New(kinds...)
	out := make([]Change, 0, len(changes))
	for _, change := range changes {
		if allowed.Has(change.Kind) {
			out = append(out, change)
		}
	}
	return out
}

var (
	repoReference  = regexp.MustCompile(`\b[\w.-]+/[\w.-]+#(\d+)\b`)
	plainReference = regexp.MustCompile(`(?:^|[^\w/])#(\d+)\b`)
)

// ExtractReferencedKeys collects the issue numbers referenced in a release
// body, both as #123 and owner/repo#123.
func ExtractReferencedKeys(body string) sets.Set[string] {
	out := sets.New[string]()
	for _, re := range []*regexp.Regexp{repoReference, plainReference} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			out.Insert(m[1])
		}
	}
	return out
}

// CheckInterReleaseDuplicates finds ticket changes an earlier release
// already published. Only releases whose version is below target count;
// records of target itself, later versions and unparseable versions are
// skipped. Ignore drops duplicates silently, Warn keeps them and reports,
// Error fails the run.
func CheckInterReleaseDuplicates(changes []Change, target version.Version, releases []model.ReleaseRecord, action policy.Action) ([]Change, policy.Diagnostics, error) {
	publishedIn := make(map[string][]string)
	for _, rel := range releases {
		v, err := version.Parse(rel.Version)
		if err != nil || !v.Less(target) {
			continue
		}
		for _, key := range sets.List(ExtractReferencedKeys(rel.Body)) {
			publishedIn[key] = append(publishedIn[key], rel.Version)
		}
	}
	var (
		kept       []Change
		duplicates []string
	)
	for _, change := range changes {
		versions, seen := publishedIn[change.Key]
		if change.HasTicket() && seen {
			duplicates = append(duplicates, policy.Truncate(describe(change)+" (in "+strings.Join(versions, ", ")+")", policy.DefaultSampleWidth))
			continue
		}
		kept = append(kept, change)
	}
	if len(duplicates) == 0 {
		return changes, nil, nil
	}
	msg := fmt.Sprintf("%d ticket(s) already published in an earlier release", len(duplicates))
	d, err := policy.Apply(action, CodeInterReleaseDupe, msg, len(duplicates), policy.Sample(duplicates, policy.DefaultSampleLimit))
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return kept, nil, nil
	}
	var diags policy.Diagnostics
	diags.Add(d)
	return changes, diags, nil
}

func describe(change Change) string {
	line := change.Source()
	if subject := strings.TrimSpace(change.Subject()); subject != "" {
		line += ": " + subject
	}
	return policy.Truncate(line, policy.DefaultSampleWidth)
}

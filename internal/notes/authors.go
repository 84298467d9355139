package notes

import (
	"strings"

	"github.com/kingrea/releasekit/internal/consolidate"
	"github.com/kingrea/releasekit/internal/model"
)

// mergeAuthors collects commit and pull request authors into one list keyed
// by identity. A commit author is replaced by the matching pull request
// author, found by linked pull request number, then email, then name.
func mergeAuthors(change consolidate.Change) []model.Author {
	byNumber := make(map[int]model.Author)
	var prAuthors []model.Author
	for _, pr := range change.PullRequests {
		if pr.Author == nil {
			continue
		}
		byNumber[pr.Number] = *pr.Author
		prAuthors = append(prAuthors, *pr.Author)
	}

	var list authorList
	for _, c := range change.Commits {
		list.add(resolveCommitAuthor(c, byNumber, prAuthors))
	}
	for _, a := range prAuthors {
		list.add(a)
	}
	return list.items
}

func resolveCommitAuthor(c model.Commit, byNumber map[int]model.Author, prAuthors []model.Author) model.Author {
	if a, ok := byNumber[c.PRNumber]; ok && c.PRNumber > 0 {
		return a
	}
	if email := strings.TrimSpace(c.Author.Email); email != "" {
		for _, a := range prAuthors {
			if strings.EqualFold(strings.TrimSpace(a.Email), email) {
				return a
			}
		}
	}
	if name := strings.TrimSpace(c.Author.Name); name != "" {
		for _, a := range prAuthors {
			if strings.EqualFold(a.Name, name) || strings.EqualFold(a.DisplayName, name) {
				return a
			}
		}
	}
	return c.Author
}

type authorList struct {
	items []model.Author
	index map[string]int
}

// add keeps the first author per identity, upgrading it when a later entry
// carries a forge username.
func (l *authorList) add(a model.Author) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	key := strings.ToLower(a.Identifier())
	if i, ok := l.index[key]; ok {
		if l.items[i].Username == "" && a.Username != "" {
			l.items[i] = a
		}
		return
	}
	l.index[key] = len(l.items)
	l.items = append(l.items, a)
}

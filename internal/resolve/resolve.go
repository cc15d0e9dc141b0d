// Package resolve matches inbound email subjects to existing work
// items, either by an embedded issue key or by title.
package resolve

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nvkha/mailplane/internal/plane"
)

// ErrNotFound signals that no existing work item corresponds to the
// subject; the orchestrator interprets it as "create a new one".
var ErrNotFound = errors.New("no matching work item")

// Issue key patterns (e.g. PROJ-123). The bracketed form is tried
// first; a bare key still matches so "Re: PROJ-12 ..." threads without
// brackets.
var (
	bracketedKeyPattern = regexp.MustCompile(`\[([A-Z]+-\d+)\]`)
	bareKeyPattern      = regexp.MustCompile(`\b([A-Z]+-\d+)\b`)
)

// replyPrefixPattern strips leading Re:/Fw:/Fwd: chains from a subject.
var replyPrefixPattern = regexp.MustCompile(`(?i)^(\s*(re|fwd?)\s*:\s*)+`)

// ExtractIssueKey returns the first issue key found in a subject line.
func ExtractIssueKey(subject string) (string, bool) {
	if m := bracketedKeyPattern.FindStringSubmatch(subject); m != nil {
		return m[1], true
	}
	if m := bareKeyPattern.FindStringSubmatch(subject); m != nil {
		return m[1], true
	}
	return "", false
}

// CleanSubject removes reply/forward prefixes and surrounding
// whitespace, leaving the title an email thread started with.
func CleanSubject(subject string) string {
	return strings.TrimSpace(replyPrefixPattern.ReplaceAllString(subject, ""))
}

// Resolve finds the work item an email corresponds to. With an issue
// key in the subject, an item matches when its name contains the key
// or its reconstructed key equals it exactly; without one, the cleaned
// subject must equal the item name case-insensitively. The input slice
// is never mutated, so repeated calls return the same outcome.
func Resolve(items []plane.WorkItem, subject string) (*plane.WorkItem, error) {
	if key, ok := ExtractIssueKey(subject); ok {
		for i := range items {
			if strings.Contains(items[i].Name, key) || items[i].Key() == key {
				return &items[i], nil
			}
		}
		return nil, ErrNotFound
	}

	cleaned := CleanSubject(subject)
	for i := range items {
		if strings.EqualFold(strings.TrimSpace(items[i].Name), cleaned) {
			return &items[i], nil
		}
	}
	return nil, ErrNotFound
}

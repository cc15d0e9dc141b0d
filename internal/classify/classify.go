// Package classify derives priority, responsible team, and structured
// fields from an email's subject and body using keyword and labeled-line
// heuristics.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nvkha/mailplane/internal/model"
)

// priorityCategory binds a priority level to its trigger keywords.
// Categories are checked in declaration order and the first hit wins,
// so "urgent asap ... low risk" still classifies as urgent.
type priorityCategory struct {
	priority model.Priority
	keywords []string
}

var priorityCategories = []priorityCategory{
	{model.PriorityUrgent, []string{
		"urgent", "asap", "critical", "emergency", "immediately", "outage",
	}},
	{model.PriorityHigh, []string{
		"high", "important", "blocker", "blocking", "severe", "major",
	}},
	{model.PriorityMedium, []string{
		"medium", "moderate", "normal", "soon",
	}},
	{model.PriorityLow, []string{
		"low", "minor", "trivial", "whenever", "someday",
	}},
}

// teamCategory binds a team to its trigger keywords. Declaration order
// is the tie-break so detection stays deterministic.
type teamCategory struct {
	team     model.Team
	keywords []string
}

var teamCategories = []teamCategory{
	{model.TeamBackend, []string{
		"backend", "api", "database", "server", "endpoint", "migration",
	}},
	{model.TeamFrontend, []string{
		"frontend", "ui", "css", "layout", "browser", "react",
	}},
	{model.TeamDevOps, []string{
		"devops", "deploy", "deployment", "docker", "kubernetes", "pipeline",
	}},
	{model.TeamQA, []string{
		"qa", "test", "testing", "regression", "flaky",
	}},
	{model.TeamSecurity, []string{
		"security", "vulnerability", "cve", "exploit", "phishing", "breach",
	}},
}

// teamContacts is a static team → suggestion table. The note makes it
// clear these are routing hints, not resolved user ids.
var teamContacts = map[model.Team]model.TeamContact{
	model.TeamBackend:  {Name: "Backend team", Note: "route to the backend on-call"},
	model.TeamFrontend: {Name: "Frontend team", Note: "route to the frontend rotation"},
	model.TeamDevOps:   {Name: "DevOps team", Note: "route to the platform channel"},
	model.TeamQA:       {Name: "QA team", Note: "route to the QA triage queue"},
	model.TeamSecurity: {Name: "Security team", Note: "route to the security desk"},
}

// tokenPattern splits text on non-word-character boundaries.
var tokenPattern = regexp.MustCompile(`\W+`)

// Labeled-line field patterns. Each matches a label token followed by a
// colon and captures the value. Labels may hold a comma-separated list,
// so its capture runs to end of line; the single-valued fields stop at
// the next comma or semicolon as well.
var (
	labelsPattern   = regexp.MustCompile(`(?im)^.*?\b(?:labels?|tags?)\s*:\s*([^\n\r]+)`)
	statePattern    = regexp.MustCompile(`(?im)\b(?:state|status)\s*:\s*([^\n\r,;]+)`)
	assigneePattern = regexp.MustCompile(`(?im)\b(?:assign(?:ee)?)\s*:\s*([^\n\r,;]+)`)
	startPattern    = regexp.MustCompile(`(?im)\b(?:start(?:\s+date)?)\s*:\s*([^\n\r,;]+)`)
	duePattern      = regexp.MustCompile(`(?im)\b(?:due(?:\s+date)?|deadline)\s*:\s*([^\n\r,;]+)`)
)

// Analyze classifies a message from its subject, plain-text body, and
// attachment metadata.
func Analyze(
	subject, body string, attachments []model.Attachment,
) model.Classification {
	tokens := tokenize(subject + " " + body)

	cls := model.Classification{
		Priority:            DetectPriority(tokens),
		Team:                DetectTeam(tokens),
		State:               extractField(statePattern, body),
		Labels:              extractLabels(body),
		AssigneeQuery:       extractField(assigneePattern, body),
		StartDate:           extractField(startPattern, body),
		DueDate:             extractField(duePattern, body),
		EnhancedDescription: RenderDescription(body, attachments),
		Attachments:         attachments,
	}

	if contact, ok := teamContacts[cls.Team]; ok {
		c := contact
		cls.Suggestion = &c
	}

	return cls
}

// tokenize lower-cases text and splits it into a whole-word token set.
func tokenize(text string) map[string]bool {
	parts := tokenPattern.Split(strings.ToLower(text), -1)
	tokens := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens[p] = true
		}
	}
	return tokens
}

// DetectPriority returns the first priority category with a keyword in
// the token set, or PriorityNone.
func DetectPriority(tokens map[string]bool) model.Priority {
	for _, cat := range priorityCategories {
		for _, kw := range cat.keywords {
			if tokens[kw] {
				return cat.priority
			}
		}
	}
	return model.PriorityNone
}

// DetectTeam returns the first team category with a keyword in the
// token set, or TeamNone.
func DetectTeam(tokens map[string]bool) model.Team {
	for _, cat := range teamCategories {
		for _, kw := range cat.keywords {
			if tokens[kw] {
				return cat.team
			}
		}
	}
	return model.TeamNone
}

// extractField returns the first, trimmed capture of pattern in body.
func extractField(pattern *regexp.Regexp, body string) string {
	m := pattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractLabels parses the Labels/Tags line into individual names.
func extractLabels(body string) []string {
	raw := extractField(labelsPattern, body)
	if raw == "" {
		return nil
	}

	var labels []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		if name := strings.TrimSpace(part); name != "" {
			labels = append(labels, name)
		}
	}
	return labels
}

// RenderDescription appends a bulleted attachment list to the body when
// attachments are present. Only filename and size metadata are used.
func RenderDescription(body string, attachments []model.Attachment) string {
	if len(attachments) == 0 {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n### Attachments\n")
	for _, att := range attachments {
		b.WriteString(fmt.Sprintf("- **%s** (%s)\n", att.Filename, att.HumanSize()))
	}
	return b.String()
}

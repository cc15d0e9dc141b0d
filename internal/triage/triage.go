// Package triage implements the per-email create-or-update decision:
// classify the message, resolve it against existing work items, then
// either open a new item or thread a comment onto the match.
package triage

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nvkha/mailplane/internal/classify"
	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/plane"
	"github.com/nvkha/mailplane/internal/resolve"
)

// WorkItemAPI is the slice of the Plane service the orchestrator
// depends on. *plane.Service satisfies it; tests substitute a fake.
type WorkItemAPI interface {
	ResolveProject(ctx context.Context, idOrSlug string) (*plane.Project, error)
	ListWorkItems(ctx context.Context, project *plane.Project) ([]plane.WorkItem, error)
	CreateWorkItem(ctx context.Context, projectID string, req plane.CreateWorkItemRequest) (*plane.WorkItem, error)
	UpdateWorkItem(ctx context.Context, projectID, id string, req plane.UpdateWorkItemRequest) error
	AddComment(ctx context.Context, projectID, itemID, html string) error
	FindStateByName(ctx context.Context, projectID, name string) (*plane.State, error)
	GetOrCreateLabels(ctx context.Context, projectID string, names []string) ([]string, error)
	FindMember(ctx context.Context, identifier string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// FilterTag restricts processing to subjects containing "[tag]",
	// case-insensitive. Empty disables the filter.
	FilterTag string

	// Project is the default project id/UUID or identifier slug.
	// Empty selects the first project visible to the credentials.
	Project string
}

// Orchestrator performs the triage decision for one email at a time.
// It keeps no cross-email state and must not be invoked concurrently
// for the same project: two overlapping runs can both resolve
// "not found" and create duplicate items.
type Orchestrator struct {
	api  WorkItemAPI
	opts Options
}

// New creates an Orchestrator backed by api.
func New(api WorkItemAPI, opts Options) *Orchestrator {
	return &Orchestrator{api: api, opts: opts}
}

// ProcessEmail runs the whole pipeline for one message and always
// returns a structured result; no error escapes this boundary.
// Attachment upload is not part of the pipeline: the caller performs
// it afterward using the returned work item id, so a failed upload
// never poisons the triage outcome. Partial effects (e.g. a posted
// comment before a failed field update) are not rolled back.
func (o *Orchestrator) ProcessEmail(
	ctx context.Context, msg model.Message,
) model.Result {
	subject := msg.Subject

	if o.opts.FilterTag != "" {
		tag := "[" + o.opts.FilterTag + "]"
		if !containsFold(subject, tag) {
			return model.Result{
				Action:  model.ActionSkipped,
				Reason:  model.SkipNoFilterTag,
				Subject: msg.Subject,
			}
		}
		subject = strings.TrimSpace(removeFold(subject, tag))
	}

	cls := classify.Analyze(subject, msg.TextBody, msg.Attachments)

	project, err := o.api.ResolveProject(ctx, o.opts.Project)
	if err != nil {
		return o.fail(msg, fmt.Errorf("resolving project: %w", err))
	}

	items, err := o.api.ListWorkItems(ctx, project)
	if err != nil {
		return o.fail(msg, fmt.Errorf("listing work items: %w", err))
	}

	item, err := resolve.Resolve(items, subject)
	switch {
	case err == nil:
		return o.updateExisting(ctx, msg, subject, cls, project, item)
	case err == resolve.ErrNotFound:
		return o.createNew(ctx, msg, subject, cls, project)
	default:
		return o.fail(msg, fmt.Errorf("resolving work item: %w", err))
	}
}

// updateExisting threads the email onto a matched work item: post a
// comment, then apply detected fields as a merged partial update.
func (o *Orchestrator) updateExisting(
	ctx context.Context,
	msg model.Message,
	subject string,
	cls model.Classification,
	project *plane.Project,
	item *plane.WorkItem,
) model.Result {
	comment := buildComment(msg.From, msg.Date, StripSentAt(cls.EnhancedDescription))
	if err := o.api.AddComment(ctx, project.ID, item.ID, comment); err != nil {
		return o.fail(msg, fmt.Errorf("adding comment: %w", err))
	}

	update := o.buildUpdate(ctx, project.ID, cls)

	// Priority is only touched when a new one was detected and it
	// differs from the current value.
	if cls.Priority != model.PriorityNone && string(cls.Priority) != item.Priority {
		update.Priority = string(cls.Priority)
	}

	if !update.IsEmpty() {
		if err := o.api.UpdateWorkItem(ctx, project.ID, item.ID, update); err != nil {
			// The comment is already posted; surface the failure
			// without undoing it.
			return o.fail(msg, fmt.Errorf("updating fields: %w", err))
		}
	}

	return model.Result{
		Action:      model.ActionUpdated,
		WorkItemID:  item.ID,
		WorkItemKey: item.Key(),
		ProjectID:   project.ID,
		Subject:     msg.Subject,
		Attachments: msg.Attachments,
	}
}

// createNew opens a work item titled after the cleaned subject.
func (o *Orchestrator) createNew(
	ctx context.Context,
	msg model.Message,
	subject string,
	cls model.Classification,
	project *plane.Project,
) model.Result {
	req := plane.CreateWorkItemRequest{
		Name:            resolve.CleanSubject(subject),
		DescriptionHTML: htmlBody(cls.EnhancedDescription),
	}
	if cls.Priority != model.PriorityNone {
		req.Priority = string(cls.Priority)
	}

	fields := o.buildUpdate(ctx, project.ID, cls)
	req.State = fields.State
	req.Labels = fields.Labels
	req.Assignees = fields.Assignees
	req.StartDate = fields.StartDate
	req.TargetDate = fields.TargetDate

	item, err := o.api.CreateWorkItem(ctx, project.ID, req)
	if err != nil {
		return o.fail(msg, fmt.Errorf("creating work item: %w", err))
	}

	key := ""
	if item.SequenceID != 0 && project.Identifier != "" {
		key = fmt.Sprintf("%s-%d", project.Identifier, item.SequenceID)
	}

	return model.Result{
		Action:      model.ActionCreated,
		WorkItemID:  item.ID,
		WorkItemKey: key,
		ProjectID:   project.ID,
		Subject:     msg.Subject,
		Attachments: msg.Attachments,
	}
}

// buildUpdate resolves detected fields to their Plane ids. A lookup
// miss drops the field and logs it; only detected, resolvable fields
// end up in the request.
func (o *Orchestrator) buildUpdate(
	ctx context.Context, projectID string, cls model.Classification,
) plane.UpdateWorkItemRequest {
	var update plane.UpdateWorkItemRequest

	if cls.State != "" {
		state, err := o.api.FindStateByName(ctx, projectID, cls.State)
		if err != nil {
			slog.Warn("state not applied", "state", cls.State, "error", err)
		} else {
			update.State = state.ID
		}
	}

	if len(cls.Labels) > 0 {
		ids, err := o.api.GetOrCreateLabels(ctx, projectID, cls.Labels)
		if err != nil {
			slog.Warn("labels not applied", "labels", cls.Labels, "error", err)
		} else {
			update.Labels = ids
		}
	}

	if cls.AssigneeQuery != "" {
		id, err := o.api.FindMember(ctx, cls.AssigneeQuery)
		if err != nil {
			slog.Warn("assignee not applied",
				"assignee", cls.AssigneeQuery, "error", err)
		} else {
			update.Assignees = []string{id}
		}
	}

	update.StartDate = cls.StartDate
	update.TargetDate = cls.DueDate

	return update
}

func (o *Orchestrator) fail(msg model.Message, err error) model.Result {
	return model.Result{
		Action:  model.ActionFailed,
		Subject: msg.Subject,
		Message: err.Error(),
	}
}

// Mail clients append a "Sent at: ..." line to forwarded bodies. Two
// passes handle the double and single line-break variants.
var (
	sentAtDoubleBreak = regexp.MustCompile(`(?i)Sent at:[^\n]*\r?\n\r?\n`)
	sentAtSingleBreak = regexp.MustCompile(`(?i)Sent at:[^\n]*\r?\n?`)
)

// StripSentAt removes the "Sent at: ..." artifact lines from text.
func StripSentAt(text string) string {
	text = sentAtDoubleBreak.ReplaceAllString(text, "")
	return sentAtSingleBreak.ReplaceAllString(text, "")
}

// buildComment renders the threaded comment for an existing item.
func buildComment(from string, date time.Time, description string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Email from %s", from))
	if !date.IsZero() {
		b.WriteString(fmt.Sprintf(" received %s", date.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n\n")
	b.WriteString(description)
	return htmlBody(b.String())
}

// htmlBody renders plain text as minimal HTML for description_html
// and comment_html fields.
func htmlBody(text string) string {
	escaped := html.EscapeString(strings.TrimSpace(text))
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br/>")
	return "<p>" + escaped + "</p>"
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// removeFold removes the first case-insensitive occurrence of needle.
func removeFold(haystack, needle string) string {
	idx := strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
	if idx < 0 {
		return haystack
	}
	return haystack[:idx] + haystack[idx+len(needle):]
}

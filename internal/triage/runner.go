package triage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/plane"
	"github.com/nvkha/mailplane/internal/store"
)

// Uploader uploads one local file as a work-item attachment.
// *plane.Service satisfies it.
type Uploader interface {
	UploadAttachment(
		ctx context.Context,
		projectID, itemID, filePath, filename string,
	) (*plane.Attachment, error)
}

// Notifier sends a confirmation for a successful outcome. Failures
// are logged, never surfaced into the triage result.
type Notifier func(msg model.Message, res model.Result) error

// RunnerConfig wires the optional follow-on steps around the
// orchestrator. Every field may be nil.
type RunnerConfig struct {
	Uploader Uploader
	History  store.Store
	Notify   Notifier
}

// Runner drives the full per-email flow: triage decision, attachment
// upload, history record, confirmation. It is the rule handler the
// watcher dispatches to.
type Runner struct {
	orch *Orchestrator
	cfg  RunnerConfig
}

// NewRunner creates a Runner around orch.
func NewRunner(orch *Orchestrator, cfg RunnerConfig) *Runner {
	return &Runner{orch: orch, cfg: cfg}
}

// Handle processes one message end to end and returns the triage
// result. Follow-on failures (upload, history, confirmation) are
// logged but do not change the outcome: the triage decision already
// happened and is not transactional.
func (r *Runner) Handle(ctx context.Context, msg model.Message) model.Result {
	res := r.orch.ProcessEmail(ctx, msg)

	switch res.Action {
	case model.ActionCreated, model.ActionUpdated:
		r.uploadAttachments(ctx, res)
		if r.cfg.Notify != nil {
			if err := r.cfg.Notify(msg, res); err != nil {
				slog.Warn("confirmation not sent",
					"subject", msg.Subject, "error", err)
			}
		}
	}

	if r.cfg.History != nil {
		rec := store.NewTriageRecord(msg, res)
		if err := r.cfg.History.RecordTriage(ctx, rec); err != nil {
			slog.Warn("triage history not recorded",
				"subject", msg.Subject, "error", err)
		}
	}

	return res
}

// HandleMessage adapts Handle to the rules.Handler signature.
func (r *Runner) HandleMessage(ctx context.Context, msg model.Message) error {
	res := r.Handle(ctx, msg)
	if res.Action == model.ActionFailed {
		return fmt.Errorf("processing %q: %s", msg.Subject, res.Message)
	}
	return nil
}

// uploadAttachments pushes every saved attachment to the work item
// and removes the temporary files afterward.
func (r *Runner) uploadAttachments(ctx context.Context, res model.Result) {
	if r.cfg.Uploader == nil || res.WorkItemID == "" {
		return
	}

	for _, att := range res.Attachments {
		if att.Path == "" {
			continue
		}

		_, err := r.cfg.Uploader.UploadAttachment(
			ctx, res.ProjectID, res.WorkItemID, att.Path, att.Filename,
		)
		if err != nil {
			slog.Warn("attachment not uploaded",
				"filename", att.Filename,
				"work_item", res.WorkItemID,
				"error", err,
			)
			continue
		}

		if err := os.Remove(att.Path); err != nil {
			slog.Debug("attachment temp file not removed",
				"path", att.Path, "error", err)
		}
	}
}

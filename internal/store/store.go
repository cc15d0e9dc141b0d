package store

import (
	"context"
	"time"

	"github.com/nvkha/mailplane/internal/model"
)

// TriageRecord is one row of the local triage history: what the
// pipeline did with one email. It makes partial-failure outcomes
// auditable after the fact; it is not consulted for deduplication.
type TriageRecord struct {
	ID         string    `db:"id"`
	MessageID  string    `db:"message_id"`
	Subject    string    `db:"subject"`
	Sender     string    `db:"sender"`
	Action     string    `db:"action"`
	WorkItemID string    `db:"work_item_id"`
	ProjectID  string    `db:"project_id"`
	Detail     string    `db:"detail"`
	CreatedAt  time.Time `db:"created_at"`
}

// NewTriageRecord builds a record from a processing result.
func NewTriageRecord(msg model.Message, res model.Result) TriageRecord {
	detail := res.Reason
	if res.Action == model.ActionFailed {
		detail = res.Message
	}
	return TriageRecord{
		MessageID:  msg.DedupKey(),
		Subject:    msg.Subject,
		Sender:     msg.From,
		Action:     string(res.Action),
		WorkItemID: res.WorkItemID,
		ProjectID:  res.ProjectID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
}

// Store defines the persistence interface for the triage history.
type Store interface {
	RecordTriage(ctx context.Context, rec TriageRecord) error
	RecentTriage(ctx context.Context, limit int) ([]TriageRecord, error)
	Close() error
}

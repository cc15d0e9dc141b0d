package model

// Action describes what the triage pipeline did with a message.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// Skip reasons surfaced in Result.Reason.
const (
	SkipNoFilterTag = "no-filter-tag"
)

// Result is the structured outcome of processing one email. Failures
// are carried in Message, never raised past the pipeline boundary, so
// callers can always distinguish an intentional skip from an error.
type Result struct {
	Action Action

	// WorkItemID is set for created and updated outcomes.
	WorkItemID string

	// WorkItemKey is the human-readable key (IDENT-NUM) when known.
	WorkItemKey string

	ProjectID string
	Subject   string

	// Reason explains a skip (e.g. SkipNoFilterTag).
	Reason string

	// Message holds the error text for failed outcomes.
	Message string

	// Attachments are passed through unchanged for the caller's
	// decoupled upload step.
	Attachments []Attachment
}

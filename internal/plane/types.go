package plane

import "fmt"

// Project represents a Plane project.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// WorkItem represents a Plane issue as returned by the REST API.
type WorkItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DescriptionHTML string   `json:"description_html,omitempty"`
	Priority        string   `json:"priority"`
	State           string   `json:"state,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	Assignees       []string `json:"assignees,omitempty"`
	StartDate       string   `json:"start_date,omitempty"`
	TargetDate      string   `json:"target_date,omitempty"`
	SequenceID      int      `json:"sequence_id"`
	ProjectID       string   `json:"project"`

	// ProjectIdentifier is filled in by the service from the owning
	// project; the list endpoint does not include it.
	ProjectIdentifier string `json:"project_identifier,omitempty"`
}

// Key reconstructs the human-readable issue key (IDENT-NUM) used for
// email threading. Empty when the identifier is unknown.
func (w WorkItem) Key() string {
	if w.ProjectIdentifier == "" || w.SequenceID == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%d", w.ProjectIdentifier, w.SequenceID)
}

// State represents a workflow state within a project.
type State struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Label represents an issue label within a project.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Member represents a workspace member.
type Member struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Attachment is the descriptor returned after an attachment upload.
// The upload itself is opaque to the triage core.
type Attachment struct {
	ID         string               `json:"id"`
	Asset      string               `json:"asset"`
	Attributes AttachmentAttributes `json:"attributes"`
}

// AttachmentAttributes holds the stored file's metadata.
type AttachmentAttributes struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// CreateWorkItemRequest is the body for issue creation. Optional
// fields are omitted when unset so project defaults apply.
type CreateWorkItemRequest struct {
	Name            string   `json:"name"`
	DescriptionHTML string   `json:"description_html,omitempty"`
	Priority        string   `json:"priority,omitempty"`
	State           string   `json:"state,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	Assignees       []string `json:"assignees,omitempty"`
	StartDate       string   `json:"start_date,omitempty"`
	TargetDate      string   `json:"target_date,omitempty"`
}

// UpdateWorkItemRequest is the body for a partial issue update. Only
// fields that were actually detected are included; unset fields are
// never overwritten.
type UpdateWorkItemRequest struct {
	Priority   string   `json:"priority,omitempty"`
	State      string   `json:"state,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Assignees  []string `json:"assignees,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	TargetDate string   `json:"target_date,omitempty"`
}

// IsEmpty reports whether the update carries no detected fields.
func (r UpdateWorkItemRequest) IsEmpty() bool {
	return r.Priority == "" && r.State == "" && len(r.Labels) == 0 &&
		len(r.Assignees) == 0 && r.StartDate == "" && r.TargetDate == ""
}

// listResponse is the cursor-paginated envelope Plane wraps list
// results in.
type listResponse[T any] struct {
	TotalCount      int    `json:"total_count"`
	NextCursor      string `json:"next_cursor"`
	NextPageResults bool   `json:"next_page_results"`
	Results         []T    `json:"results"`
}

// ErrorResponse is the Plane API error envelope.
type ErrorResponse struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

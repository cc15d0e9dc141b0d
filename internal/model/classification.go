package model

// Priority is the detected urgency of a message, in Plane's vocabulary.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Team identifies the responsible team suggested for a message.
type Team string

const (
	TeamBackend  Team = "backend"
	TeamFrontend Team = "frontend"
	TeamDevOps   Team = "devops"
	TeamQA       Team = "qa"
	TeamSecurity Team = "security"
	TeamNone     Team = ""
)

// TeamContact is a static routing suggestion for a detected team.
// It is a placeholder for display, not a real user id.
type TeamContact struct {
	Name string
	Note string
}

// Classification is the per-message result of keyword and field
// analysis. It is derived and never persisted.
type Classification struct {
	Priority Priority
	Team     Team

	// Suggestion is nil when no team was detected.
	Suggestion *TeamContact

	// Fields parsed from labeled lines in the body. Empty when the
	// corresponding label was not present.
	State         string
	Labels        []string
	AssigneeQuery string
	StartDate     string
	DueDate       string

	// EnhancedDescription is the original body with a rendered
	// attachment list appended.
	EnhancedDescription string

	Attachments []Attachment
}

package models

// Priority ranks an action item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ActionStatus tracks the progress of an action item
type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
)

// Valid reports whether s is one of the known statuses
func (s ActionStatus) Valid() bool {
	switch s {
	case ActionPending, ActionInProgress, ActionCompleted:
		return true
	}
	return false
}

// ActionItem is a follow-up agreed on during the retrospective
type ActionItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	AssigneeID  string       `json:"assigneeId,omitempty"`
	Priority    Priority     `json:"priority"`
	DueDate     string       `json:"dueDate,omitempty"`
	Status      ActionStatus `json:"status"`
}

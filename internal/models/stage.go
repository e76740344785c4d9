package models

// Well-known stage ids. Templates may define others.
const (
	StageIcebreaker = "icebreaker"
	StageBrainstorm = "brainstorm"
	StageGroup      = "group"
	StageVote       = "vote"
	StageDiscuss    = "discuss"
	StageReview     = "review"
)

// Stage is one phase of the retrospective workflow
type Stage struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Duration int    `json:"duration" yaml:"duration"` // minutes, advisory
	Enabled  bool   `json:"enabled" yaml:"enabled"`
}

// Column is a board column cards are written into
type Column struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

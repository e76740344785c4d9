package models

// IcebreakerPhase is the answering phase of the icebreaker mini-workflow
type IcebreakerPhase string

const (
	IcebreakerIdle      IcebreakerPhase = "idle"
	IcebreakerAnswering IcebreakerPhase = "answering"
	IcebreakerClosed    IcebreakerPhase = "closed"
)

// IcebreakerState is the icebreaker slice of a room
type IcebreakerState struct {
	QuestionIndex int               `json:"questionIndex"`
	Question      string            `json:"question,omitempty"`
	Phase         IcebreakerPhase   `json:"phase"`
	Answers       map[string]string `json:"answers"` // participantID -> answer
}

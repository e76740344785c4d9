package models

import "time"

// Snapshot is a complete, consistent copy of a room's canonical state
type Snapshot struct {
	SessionID         string                         `json:"sessionId"`
	Version           uint64                         `json:"version"`
	Config            RoomConfig                     `json:"config"`
	CreatorID         string                         `json:"creatorId"`
	Participants      []Participant                  `json:"participants"`
	Cards             []Card                         `json:"cards"`
	Groups            []CardGroup                    `json:"groups"`
	Votes             map[string][]string            `json:"votes"`
	ActionItems       []ActionItem                   `json:"actionItems"`
	Discussed         []string                       `json:"discussed"`
	StageDone         map[string][]string            `json:"stageDone"`
	Reactions         map[string]map[string][]string `json:"reactions"`
	Icebreaker        IcebreakerState                `json:"icebreaker"`
	CurrentStageIndex int                            `json:"currentStageIndex"`
	StageStartedAt    time.Time                      `json:"stageStartedAt"`
}

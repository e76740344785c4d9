package retro

import (
	"time"

	"github.com/aaronzipp/retroboard/internal/models"
)

// Event is a server-to-client state change. EventType is the wire type.
type Event interface {
	EventType() string
}

// GroupChange lists the side effects a card or grouping mutation had on
// other groups, so clients can reconcile without a snapshot
type GroupChange struct {
	UpdatedGroups  []models.CardGroup `json:"updatedGroups,omitempty"`
	DeletedGroups  []string           `json:"deletedGroups,omitempty"`
	UngroupedCards []string           `json:"ungroupedCards,omitempty"`
	PurgedItems    []string           `json:"purgedItems,omitempty"`
}

type CardCreated struct {
	Card models.Card `json:"card"`
}

type CardUpdated struct {
	Card models.Card `json:"card"`
}

type CardDeleted struct {
	CardID string `json:"cardId"`
	GroupChange
}

type VoteAdded struct {
	ItemID string   `json:"itemId"`
	UserID string   `json:"userId"`
	Votes  []string `json:"votes"`
}

type VoteRemoved struct {
	ItemID string   `json:"itemId"`
	UserID string   `json:"userId"`
	Votes  []string `json:"votes"`
}

type CardsGroupedEvent struct {
	Group models.CardGroup `json:"group"`
	GroupChange
}

type CardUngroupedEvent struct {
	CardID string `json:"cardId"`
	GroupChange
}

type StageDoneUpdate struct {
	StageID          string   `json:"stageId"`
	Done             []string `json:"done"`
	ParticipantCount int      `json:"participantCount"`
}

type StageChanged struct {
	StageIndex int       `json:"stageIndex"`
	StageID    string    `json:"stageId"`
	StartedAt  time.Time `json:"startedAt"`
}

type ActionItemChanged struct {
	Action string            `json:"action"`
	Item   models.ActionItem `json:"item"`
}

type DiscussChanged struct {
	Action    string   `json:"action"`
	ItemID    string   `json:"itemId"`
	Discussed []string `json:"discussed"`
}

type ReactionChanged struct {
	CardID string   `json:"cardId"`
	Emoji  string   `json:"emoji"`
	Users  []string `json:"users"`
}

type IcebreakerChanged struct {
	Icebreaker models.IcebreakerState `json:"icebreaker"`
}

// UserJoined is sent only to the joining connection
type UserJoined struct {
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	IsCreator      bool            `json:"isCreator"`
	IsReconnection bool            `json:"isReconnection"`
	Snapshot       models.Snapshot `json:"snapshot"`
}

type ParticipantsUpdate struct {
	CreatorID    string               `json:"creatorId"`
	Participants []models.Participant `json:"participants"`
}

type CreatorAssigned struct {
	CreatorID         string `json:"creatorId"`
	PreviousCreatorID string `json:"previousCreatorId,omitempty"`
}

// StateSync carries a full snapshot to a single connection, used after a
// rejected mutation so the sender can drop its optimistic change
type StateSync struct {
	Reason   string          `json:"reason,omitempty"`
	Snapshot models.Snapshot `json:"snapshot"`
}

func (CardCreated) EventType() string        { return models.EventCardCreated }
func (CardUpdated) EventType() string        { return models.EventCardUpdated }
func (CardDeleted) EventType() string        { return models.EventCardDeleted }
func (VoteAdded) EventType() string          { return models.EventVoteAdded }
func (VoteRemoved) EventType() string        { return models.EventVoteRemoved }
func (CardsGroupedEvent) EventType() string  { return models.EventCardsGrouped }
func (CardUngroupedEvent) EventType() string { return models.EventCardUngrouped }
func (StageDoneUpdate) EventType() string    { return models.EventStageDoneUpdate }
func (StageChanged) EventType() string       { return models.EventStageChange }
func (ActionItemChanged) EventType() string  { return models.EventActionItemUpdate }
func (DiscussChanged) EventType() string     { return models.EventDiscussUpdate }
func (ReactionChanged) EventType() string    { return models.EventReactionUpdate }
func (IcebreakerChanged) EventType() string  { return models.EventIcebreakerUpdate }
func (UserJoined) EventType() string         { return models.EventUserJoined }
func (ParticipantsUpdate) EventType() string { return models.EventParticipantsUpdate }
func (CreatorAssigned) EventType() string    { return models.EventCreatorAssigned }
func (StateSync) EventType() string          { return models.EventStateSync }

package retro

import (
	"encoding/json"
	"fmt"

	"github.com/aaronzipp/retroboard/internal/models"
)

// Kind discriminates inbound client messages
type Kind string

const (
	KindCardCreate       Kind = "card-create"
	KindCardUpdate       Kind = "card-update"
	KindCardDelete       Kind = "card-delete"
	KindVoteAdd          Kind = "vote-add"
	KindVoteRemove       Kind = "vote-remove"
	KindCardsGrouped     Kind = "cards-grouped"
	KindCardUngrouped    Kind = "card-ungrouped"
	KindMarkStageDone    Kind = "mark-stage-done"
	KindStageChange      Kind = "stage-change"
	KindActionItemUpdate Kind = "action-item-update"
	KindDiscussUpdate    Kind = "discuss-update"
	KindReactionUpdate   Kind = "reaction-update"
	KindIcebreakerUpdate Kind = "icebreaker-update"
)

// Message is the closed set of client messages. Only types in this package
// implement it, so a type switch over Message covers every kind.
type Message interface {
	Kind() Kind
	message()
}

type CardCreate struct {
	ID       string `json:"id,omitempty"`
	ColumnID string `json:"columnId"`
	Content  string `json:"content"`
}

type CardUpdate struct {
	CardID  string `json:"cardId"`
	Content string `json:"content"`
}

type CardDelete struct {
	CardID string `json:"cardId"`
}

type VoteAdd struct {
	ItemID string `json:"itemId"`
}

type VoteRemove struct {
	ItemID string `json:"itemId"`
}

type CardsGrouped struct {
	GroupID string   `json:"groupId,omitempty"`
	CardIDs []string `json:"cardIds"`
}

type CardUngrouped struct {
	CardID string `json:"cardId"`
}

type MarkStageDone struct {
	StageID string `json:"stageId"`
}

type StageChange struct {
	StageIndex *int `json:"stageIndex"`
}

// ActionItemUpdate adds, patches or deletes an action item. An updated item
// only needs its id and the fields that change; empty fields keep their value.
type ActionItemUpdate struct {
	Action string            `json:"action"`
	Item   models.ActionItem `json:"item"`
}

type DiscussUpdate struct {
	Action string `json:"action"`
	ItemID string `json:"itemId"`
}

type ReactionUpdate struct {
	CardID string `json:"cardId"`
	Emoji  string `json:"emoji"`
	Action string `json:"action,omitempty"`
}

type IcebreakerUpdate struct {
	Action string `json:"action"`
	Answer string `json:"answer,omitempty"`
}

func (CardCreate) Kind() Kind       { return KindCardCreate }
func (CardUpdate) Kind() Kind       { return KindCardUpdate }
func (CardDelete) Kind() Kind       { return KindCardDelete }
func (VoteAdd) Kind() Kind          { return KindVoteAdd }
func (VoteRemove) Kind() Kind       { return KindVoteRemove }
func (CardsGrouped) Kind() Kind     { return KindCardsGrouped }
func (CardUngrouped) Kind() Kind    { return KindCardUngrouped }
func (MarkStageDone) Kind() Kind    { return KindMarkStageDone }
func (StageChange) Kind() Kind      { return KindStageChange }
func (ActionItemUpdate) Kind() Kind { return KindActionItemUpdate }
func (DiscussUpdate) Kind() Kind    { return KindDiscussUpdate }
func (ReactionUpdate) Kind() Kind   { return KindReactionUpdate }
func (IcebreakerUpdate) Kind() Kind { return KindIcebreakerUpdate }

func (CardCreate) message()       {}
func (CardUpdate) message()       {}
func (CardDelete) message()       {}
func (VoteAdd) message()          {}
func (VoteRemove) message()       {}
func (CardsGrouped) message()     {}
func (CardUngrouped) message()    {}
func (MarkStageDone) message()    {}
func (StageChange) message()      {}
func (ActionItemUpdate) message() {}
func (DiscussUpdate) message()    {}
func (ReactionUpdate) message()   {}
func (IcebreakerUpdate) message() {}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound frame. It returns ErrMalformed for payloads that
// are not JSON objects with a string type, and ErrUnknownType for any type
// outside the client message set.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var msg Message
	var err error
	switch Kind(env.Type) {
	case KindCardCreate:
		msg, err = decodeAs[CardCreate](data)
	case KindCardUpdate:
		msg, err = decodeAs[CardUpdate](data)
	case KindCardDelete:
		msg, err = decodeAs[CardDelete](data)
	case KindVoteAdd:
		msg, err = decodeAs[VoteAdd](data)
	case KindVoteRemove:
		msg, err = decodeAs[VoteRemove](data)
	case KindCardsGrouped:
		msg, err = decodeAs[CardsGrouped](data)
	case KindCardUngrouped:
		msg, err = decodeAs[CardUngrouped](data)
	case KindMarkStageDone:
		msg, err = decodeAs[MarkStageDone](data)
	case KindStageChange:
		msg, err = decodeAs[StageChange](data)
	case KindActionItemUpdate:
		msg, err = decodeAs[ActionItemUpdate](data)
	case KindDiscussUpdate:
		msg, err = decodeAs[DiscussUpdate](data)
	case KindReactionUpdate:
		msg, err = decodeAs[ReactionUpdate](data)
	case KindIcebreakerUpdate:
		msg, err = decodeAs[IcebreakerUpdate](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return msg, nil
}

func decodeAs[T Message](data []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

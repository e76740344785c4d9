package models

// Wire event types sent by the server
const (
	EventUserJoined         = "user-joined"
	EventParticipantsUpdate = "participants-update"
	EventCreatorAssigned    = "creator-assigned"
	EventStateSync          = "state-sync"

	EventCardCreated      = "card-created"
	EventCardUpdated      = "card-updated"
	EventCardDeleted      = "card-deleted"
	EventVoteAdded        = "vote-added"
	EventVoteRemoved      = "vote-removed"
	EventCardsGrouped     = "cards-grouped"
	EventCardUngrouped    = "card-ungrouped"
	EventStageDoneUpdate  = "stage-done-update"
	EventStageChange      = "stage-change"
	EventActionItemUpdate = "action-item-update"
	EventDiscussUpdate    = "discuss-update"
	EventReactionUpdate   = "reaction-update"
	EventIcebreakerUpdate = "icebreaker-update"
)

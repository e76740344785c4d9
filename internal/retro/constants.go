package retro

const (
	// DefaultVotingLimit is used when the session metadata carries no limit
	DefaultVotingLimit = 5

	// MaxCardContentRunes bounds the text of a single card
	MaxCardContentRunes = 2000

	// MaxAnswerRunes bounds an icebreaker answer
	MaxAnswerRunes = 500

	// MaxTitleRunes bounds action item titles
	MaxTitleRunes = 200

	// MaxIDLength bounds client supplied ids
	MaxIDLength = 64

	// MaxEmojiRunes bounds a reaction key; most emoji are one to a few runes
	MaxEmojiRunes = 16
)

// Discuss, reaction and action item sub-actions
const (
	ActionAdd     = "add"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	DiscussMark   = "mark"
	DiscussUnmark = "unmark"

	ReactionAdd    = "add"
	ReactionRemove = "remove"
	ReactionToggle = "toggle"
)

// Icebreaker sub-actions
const (
	IcebreakerStart  = "start"
	IcebreakerAnswer = "answer"
	IcebreakerClose  = "close"
	IcebreakerNext   = "next"
	IcebreakerReset  = "reset"
)

package models

import "time"

// Card is a single note placed in a board column
type Card struct {
	ID        string    `json:"id"`
	ColumnID  string    `json:"columnId"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	GroupID   string    `json:"groupId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CardGroup clusters two or more cards of the same column so they are voted
// on and discussed as one item
type CardGroup struct {
	ID       string   `json:"id"`
	CardIDs  []string `json:"cardIds"`
	ColumnID string   `json:"columnId"`
}

// Has reports whether cardID is a member of the group
func (g *CardGroup) Has(cardID string) bool {
	for _, id := range g.CardIDs {
		if id == cardID {
			return true
		}
	}
	return false
}

package models

import "time"

// Participant is one logical user attached to a room. The record outlives
// its connection so a reconnecting client gets the same identity back.
type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsCreator bool      `json:"isCreator"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joinedAt"`
}

package retro

import "errors"

var (
	// ErrMalformed marks an inbound frame that could not be parsed
	ErrMalformed = errors.New("malformed frame")
	// ErrUnknownType marks a frame whose type is not a client message kind
	ErrUnknownType = errors.New("unknown message type")
	// ErrNotFound marks a reference to a card, group, item or participant that does not exist
	ErrNotFound = errors.New("not found")
	// ErrPrecondition marks a well-formed mutation the current state does not allow
	ErrPrecondition = errors.New("precondition failed")
	// ErrForbidden marks a mutation the sender's role does not allow
	ErrForbidden = errors.New("forbidden")
)

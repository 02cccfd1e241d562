package session

import "errors"

var (
	ErrGameExists    = errors.New("game already exists")
	ErrGameNotFound  = errors.New("game not found")
	ErrGameNotActive = errors.New("game is not active")
	ErrSeatMismatch  = errors.New("connection does not own the seat to move")
	ErrNotAnAIGame   = errors.New("game has no computer opponent")
)

package arenadto

// DomainError is the transport-facing failure shape. Code is stable and
// machine-matchable; Message is display text.
type DomainError struct {
	Code    string
	Message string
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "arena error"
}

const (
	CodeGameExists    = "GAME_EXISTS"
	CodeGameNotFound  = "GAME_NOT_FOUND"
	CodeGameNotActive = "GAME_NOT_ACTIVE"
	CodeSeatMismatch  = "SEAT_MISMATCH"
	CodeIllegalMove   = "ILLEGAL_MOVE"
	CodeNotAnAIGame   = "NOT_AN_AI_GAME"
	CodeInternal      = "INTERNAL"
)

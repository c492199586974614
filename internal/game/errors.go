package game

import "errors"

// Sentinel errors for expected operation outcomes. Callers branch with
// errors.Is; wrapped messages carry the detail.
var (
	// ErrNotFound means an unknown access code, player, or question.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness violation: nickname taken, duplicate
	// answer, or an access code already in use.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState means the operation is not valid for the session's
	// current status, e.g. answering while results are shown.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput means malformed input: bad nickname, empty selection.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCapacity means the session player limit is reached.
	ErrCapacity = errors.New("session full")
)

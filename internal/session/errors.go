package session

import "errors"

var (
	// ErrNotEnoughThemes is returned when a selection covers fewer than MinThemes themes.
	ErrNotEnoughThemes = errors.New("select at least 5 themes")
	// ErrUnknownTheme is returned when a selection names a theme outside the catalogue.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrInvalidSessionSize is returned for a question count outside AllowedSizes.
	ErrInvalidSessionSize = errors.New("invalid session size")
	// ErrWrongPhase is returned when an operation does not apply to the current phase.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
	// ErrAnswersLocked is returned when an answer is already in flight or no question is shown.
	ErrAnswersLocked = errors.New("answers are locked")
	// ErrSessionFinished is returned once a session has been finalized.
	ErrSessionFinished = errors.New("session already finished")
)

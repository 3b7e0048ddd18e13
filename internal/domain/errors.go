package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a player has no started quiz session.
	ErrSessionNotFound = errors.New("quiz not started")
	// ErrNoActiveQuestion is returned when an answer arrives with no question pending.
	ErrNoActiveQuestion = errors.New("no active question to answer")
	// ErrQuestionNotFound indicates a submitted question ID is not the pending one.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestionAvailable indicates every source attempt failed or was a duplicate.
	ErrNoQuestionAvailable = errors.New("no question available")
	// ErrUnknownTheme indicates a theme outside the catalogue.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrPlayerNotFound indicates a request without a player identity.
	ErrPlayerNotFound = errors.New("player not found")
)

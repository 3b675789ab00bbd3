package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNameTaken      = errors.New("player name is already taken")

	// Store errors
	ErrStoreClosed = errors.New("store is closed")
)

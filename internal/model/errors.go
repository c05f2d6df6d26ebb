package model

import "errors"

// Common errors used across the application
var (
	// Storage lifecycle errors
	ErrInitialization = errors.New("storage initialization failed")
	ErrWrite          = errors.New("storage write failed")
	ErrQuery          = errors.New("storage query failed")

	// Game stats errors
	ErrInvalidGameStats = errors.New("invalid game stats")
)

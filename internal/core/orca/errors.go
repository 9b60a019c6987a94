package orca

import "errors"

var (
	ErrInvalidAgent = errors.New("agent radius, mass, max speed and time horizon must be positive")
)

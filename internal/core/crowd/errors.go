package crowd

import "errors"

var (
	ErrAgentNotFound   = errors.New("agent not found")
	ErrInvalidTimeStep = errors.New("time step must be positive")
	ErrStepDiscarded   = errors.New("step results were discarded")
)

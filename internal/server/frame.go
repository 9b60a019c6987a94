package server

import (
	"github.com/zeusync/crowdsync/internal/core/crowd"
)

// Frame is one published simulation state.
type Frame struct {
	Step     uint64       `json:"step"`
	Time     float64      `json:"time"`
	Checksum uint64       `json:"checksum"`
	Agents   []AgentFrame `json:"agents"`
}

// AgentFrame is an agent's position and velocity on the simulation plane.
type AgentFrame struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"r"`
}

// FrameOf captures the committed state of sim. views is scratch space and
// may be nil.
func FrameOf(sim *crowd.Simulation, views []crowd.AgentView) (Frame, []crowd.AgentView) {
	views = sim.Views(views)
	plane := sim.Options().Plane

	frame := Frame{
		Step:     sim.Steps(),
		Time:     sim.Elapsed(),
		Checksum: sim.Checksum(),
		Agents:   make([]AgentFrame, len(views)),
	}
	for i, v := range views {
		p := plane.Project(v.Position)
		frame.Agents[i] = AgentFrame{
			ID:     v.ID,
			X:      p.X,
			Y:      p.Y,
			VX:     v.Velocity.X,
			VY:     v.Velocity.Y,
			Radius: v.Radius,
		}
	}
	return frame, views
}

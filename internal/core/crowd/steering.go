package crowd

import (
	"math"

	"github.com/zeusync/crowdsync/internal/core/orca"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

// Seek returns the preferred velocity that carries a towards target on the
// given plane, slowing down inside one second of travel so it settles
// instead of orbiting.
func Seek(a *orca.Agent, plane physics.Plane, target physics.Vec2) physics.Vec2 {
	offset := target.Sub(plane.Project(a.Position))
	dist := offset.Length()
	if dist == 0 || a.MaxSpeed <= 0 {
		return physics.Vec2{}
	}
	speed := a.MaxSpeed * math.Min(1, dist/a.MaxSpeed)
	return offset.Scale(speed / dist)
}

// SeekAll points every agent at target. Agents already within arrive of
// the target get a zero preferred velocity.
func (s *Simulation) SeekAll(target physics.Vec2, arrive float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()

	for i := range s.agents {
		s.seekLocked(i, target, arrive)
	}
}

// SeekGoals points each agent named in goals at its own goal. Unknown ids
// are ignored.
func (s *Simulation) SeekGoals(goals map[string]physics.Vec2, arrive float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()

	for id, goal := range goals {
		if i, ok := s.index[id]; ok {
			s.seekLocked(i, goal, arrive)
		}
	}
}

func (s *Simulation) seekLocked(i int, target physics.Vec2, arrive float64) {
	a := &s.agents[i]
	if target.Sub(s.opts.Plane.Project(a.Position)).LengthSq() <= arrive*arrive {
		a.PreferredVelocity = physics.Vec2{}
		return
	}
	a.PreferredVelocity = Seek(a, s.opts.Plane, target)
}

package crowd

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/zeusync/crowdsync/internal/core/orca"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

// Spawn is an agent created by a scenario and the plane point it walks to.
type Spawn struct {
	ID   string
	Goal physics.Vec2
}

// Goals indexes spawns by agent id.
func Goals(spawns []Spawn) map[string]physics.Vec2 {
	goals := make(map[string]physics.Vec2, len(spawns))
	for _, sp := range spawns {
		goals[sp.ID] = sp.Goal
	}
	return goals
}

// SpawnDisc places count copies of template evenly on a circle of radius
// around center in the simulation plane, with a small random jitter from
// rng. Each agent prefers to walk through the center to the antipodal
// point, which makes every agent meet every other near the middle.
func SpawnDisc(sim *Simulation, count int, center physics.Vec3, radius float64, rng *rand.Rand, template orca.Agent) ([]Spawn, error) {
	plane := sim.Options().Plane
	c := plane.Project(center)

	spawns := make([]Spawn, 0, count)
	for i := 0; i < count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(count)
		if rng != nil {
			angle += (rng.Float64() - 0.5) * 1e-3
		}
		offset := physics.V2(math.Cos(angle), math.Sin(angle)).Scale(radius)

		a := template
		a.Position = plane.Embed(c.Add(offset), center)
		a.Velocity = physics.Vec2{}
		goal := c.Sub(offset)
		a.PreferredVelocity = Seek(&a, plane, goal)

		id, err := sim.AddAgent(a)
		if err != nil {
			return spawns, fmt.Errorf("spawn agent %d: %w", i, err)
		}
		spawns = append(spawns, Spawn{ID: id, Goal: goal})
	}
	return spawns, nil
}

package orca

import (
	"math"

	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

// Line is the directed boundary of a half-plane of permitted velocities.
// A velocity c lies outside when Direction.Det(Point - c) > 0.
type Line struct {
	Direction physics.Vec2
	Point     physics.Vec2
}

// Violation is how far v lies outside l; values <= 0 satisfy the line.
func (l Line) Violation(v physics.Vec2) float64 {
	return l.Direction.Det(l.Point.Sub(v))
}

// YieldShare is the fraction of the avoidance effort taken by an agent of
// mass self against an agent of mass other. Equal masses share half each.
func YieldShare(self, other float64) float64 {
	return 1 - self/(self+other)
}

// BuildLine derives the velocity constraint that self must respect to avoid
// other within timeHorizon. ok is false when the pair is degenerate
// (overlapping with an almost zero relative velocity) and yields no line.
func BuildLine(self Body, timeHorizon float64, other Body, dt, epsilon float64) (line Line, ok bool) {
	relativePosition := other.Position.Sub(self.Position)
	relativeVelocity := self.Velocity.Sub(other.Velocity)
	distSq := relativePosition.LengthSq()
	combinedRadius := self.Radius + other.Radius
	combinedRadiusSq := combinedRadius * combinedRadius

	var u physics.Vec2

	if distSq > combinedRadiusSq {
		invTimeHorizon := 1 / timeHorizon

		// From the cutoff centre to the relative velocity.
		w := relativeVelocity.Sub(relativePosition.Scale(invTimeHorizon))
		wLengthSq := w.LengthSq()
		dotProduct := w.Dot(relativePosition)

		if dotProduct < 0 && dotProduct*dotProduct > combinedRadiusSq*wLengthSq {
			// Project on the cutoff circle.
			wLength := math.Sqrt(wLengthSq)
			unitW := w.Scale(1 / wLength)
			line.Direction = physics.V2(unitW.Y, -unitW.X)
			u = unitW.Scale(combinedRadius*invTimeHorizon - wLength)
		} else {
			// Project on the legs.
			leg := math.Sqrt(distSq - combinedRadiusSq)
			p := relativePosition
			if physics.Det(p, w) > 0 {
				line.Direction = physics.V2(
					p.X*leg-p.Y*combinedRadius,
					p.X*combinedRadius+p.Y*leg,
				).Scale(1 / distSq)
			} else {
				line.Direction = physics.V2(
					p.X*leg+p.Y*combinedRadius,
					-p.X*combinedRadius+p.Y*leg,
				).Scale(-1 / distSq)
			}
			u = line.Direction.Scale(relativeVelocity.Dot(line.Direction)).Sub(relativeVelocity)
		}
	} else {
		// Already overlapping: cutoff circle of the time step.
		invTimeStep := 1 / dt
		w := relativeVelocity.Sub(relativePosition.Scale(invTimeStep))
		wLength := w.Length()
		if wLength < epsilon {
			return Line{}, false
		}
		unitW := w.Scale(1 / wLength)
		line.Direction = physics.V2(unitW.Y, -unitW.X)
		u = unitW.Scale(combinedRadius*invTimeStep - wLength)
	}

	line.Point = self.Velocity.Add(u.Scale(YieldShare(self.Mass, other.Mass)))
	return line, true
}

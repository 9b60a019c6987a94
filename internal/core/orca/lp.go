package orca

import (
	"math"

	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

// linearProgram1 solves the one-dimensional problem on lines[lineNo],
// bounded by the speed disc and every earlier line. result is written only
// on success.
func linearProgram1(lines []Line, lineNo int, radius float64, optVelocity physics.Vec2, directionOpt bool, epsilon float64, result *physics.Vec2) bool {
	line := lines[lineNo]
	dotProduct := line.Point.Dot(line.Direction)
	discriminant := dotProduct*dotProduct + radius*radius - line.Point.LengthSq()
	if discriminant < 0 {
		// The speed disc fully invalidates this line.
		return false
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	tLeft := -dotProduct - sqrtDiscriminant
	tRight := -dotProduct + sqrtDiscriminant

	for i := 0; i < lineNo; i++ {
		prior := lines[i]
		denominator := physics.Det(line.Direction, prior.Direction)
		numerator := physics.Det(prior.Direction, line.Point.Sub(prior.Point))

		if math.Abs(denominator) <= epsilon {
			// Almost parallel.
			if numerator < 0 {
				return false
			}
			continue
		}

		t := numerator / denominator
		if denominator >= 0 {
			// prior bounds the line on the right.
			tRight = math.Min(tRight, t)
		} else {
			// prior bounds the line on the left.
			tLeft = math.Max(tLeft, t)
		}

		if tLeft > tRight {
			return false
		}
	}

	if directionOpt {
		if optVelocity.Dot(line.Direction) > 0 {
			*result = line.Point.Add(line.Direction.Scale(tRight))
		} else {
			*result = line.Point.Add(line.Direction.Scale(tLeft))
		}
		return true
	}

	t := line.Direction.Dot(optVelocity.Sub(line.Point))
	switch {
	case t < tLeft:
		*result = line.Point.Add(line.Direction.Scale(tLeft))
	case t > tRight:
		*result = line.Point.Add(line.Direction.Scale(tRight))
	default:
		*result = line.Point.Add(line.Direction.Scale(t))
	}
	return true
}

// LinearProgram2 finds the velocity inside every half-plane of lines and the
// disc of radius that is closest to optVelocity, or most aligned with it when
// directionOpt is set (optVelocity must then be a unit vector).
//
// fail is len(lines) on success. Otherwise it is the index of the first line
// that cannot be satisfied together with the earlier ones, and result is the
// last feasible velocity found before it.
func LinearProgram2(lines []Line, radius float64, optVelocity physics.Vec2, directionOpt bool, epsilon float64) (result physics.Vec2, fail int) {
	switch {
	case directionOpt:
		result = optVelocity.Scale(radius)
	case optVelocity.LengthSq() > radius*radius:
		result = optVelocity.Normalize().Scale(radius)
	default:
		result = optVelocity
	}

	for i := range lines {
		if lines[i].Violation(result) > 0 {
			if !linearProgram1(lines, i, radius, optVelocity, directionOpt, epsilon, &result) {
				return result, i
			}
		}
	}

	return result, len(lines)
}

// LinearProgram3 relaxes an infeasible set starting at beginLine, the index
// LinearProgram2 failed on, and returns the velocity that minimises the
// largest violation. The first numObstLines lines are obstacles and are never
// relaxed. scratch is reused for the projected lines and may be nil.
//
// relaxed counts inner solves rejected by floating point error, in which
// case the previous result was kept. The result may still violate some lines
// in degenerate configurations.
func LinearProgram3(lines []Line, numObstLines, beginLine int, radius float64, result physics.Vec2, epsilon float64, scratch []Line) (physics.Vec2, int, []Line) {
	distance := 0.0
	relaxed := 0

	for i := beginLine; i < len(lines); i++ {
		lineI := lines[i]
		if lineI.Violation(result) <= distance {
			continue
		}

		projLines := append(scratch[:0], lines[:numObstLines]...)
		for j := numObstLines; j < i; j++ {
			lineJ := lines[j]
			var projected Line

			determinant := physics.Det(lineI.Direction, lineJ.Direction)
			if math.Abs(determinant) <= epsilon {
				if lineI.Direction.Dot(lineJ.Direction) > 0 {
					// Same direction; j is implied by i.
					continue
				}
				projected.Point = lineI.Point.Add(lineJ.Point).Scale(0.5)
			} else {
				t := physics.Det(lineJ.Direction, lineI.Point.Sub(lineJ.Point)) / determinant
				projected.Point = lineI.Point.Add(lineI.Direction.Scale(t))
			}

			projected.Direction = lineJ.Direction.Sub(lineI.Direction).Normalize()
			projLines = append(projLines, projected)
		}
		scratch = projLines

		prev := result
		candidate, fail := LinearProgram2(projLines, radius, lineI.Direction.Perp(), true, epsilon)
		if fail < len(projLines) {
			// The previous result is feasible for projLines by construction,
			// so this only happens through rounding. Keep it.
			result = prev
			relaxed++
		} else {
			result = candidate
		}

		distance = lineI.Violation(result)
	}

	return result, relaxed, scratch
}

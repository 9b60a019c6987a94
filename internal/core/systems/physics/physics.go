package physics

import "math"

// Lightweight 2D/3D vector math for the avoidance core. Values, not
// pointers: every operation returns a new vector.

// Vec2 is a vector in the simulation plane.
type Vec2 struct{ X, Y float64 }

// V2 is shorthand for Vec2{x, y}.
func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Neg() Vec2 { return Vec2{-v.X, -v.Y} }
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Det(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }
func (v Vec2) LengthSq() float64 { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }
func (v Vec2) Perp() Vec2 { return Vec2{-v.Y, v.X} }
func (v Vec2) Equal(o Vec2) bool { return v.X == o.X && v.Y == o.Y }

// Normalize returns the unit vector along v, or the zero vector when v has
// no length.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// ClampLength limits v to maxLen while preserving its direction.
func (v Vec2) ClampLength(maxLen float64) Vec2 {
	if v.LengthSq() <= maxLen*maxLen {
		return v
	}
	return v.Normalize().Scale(maxLen)
}

// Vec3 is the carrier for positions; one axis is pinned by the Plane.
type Vec3 struct{ X, Y, Z float64 }

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Distance2 computes the Euclidean distance between two plane points.
func Distance2(a, b Vec2) float64 { return b.Sub(a).Length() }

package physics

// Det is the 2D cross product a.x*b.y - a.y*b.x.
func Det(a, b Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}

// DistSqPointLineSegment returns the squared distance from c to the segment ab.
func DistSqPointLineSegment(a, b, c Vec2) float64 {
	ca := c.Sub(a)
	ba := b.Sub(a)
	lenSq := ba.LengthSq()
	if lenSq == 0 {
		return ca.LengthSq()
	}

	r := ca.Dot(ba) / lenSq
	switch {
	case r < 0:
		return ca.LengthSq()
	case r > 1:
		return c.Sub(b).LengthSq()
	default:
		return c.Sub(a.Add(ba.Scale(r))).LengthSq()
	}
}

// LeftOf is positive when c lies to the left of the directed line a->b,
// negative to the right and zero when collinear.
func LeftOf(a, b, c Vec2) float64 {
	return Det(a.Sub(c), b.Sub(a))
}

package physics

import (
	"fmt"
	"strings"
)

// Plane selects which two world axes the simulation runs on.
type Plane uint8

const (
	// PlaneXY simulates on X/Y with Z pinned.
	PlaneXY Plane = iota
	// PlaneXZ simulates on X/Z with Y pinned (ground plane).
	PlaneXZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "xy"
	case PlaneXZ:
		return "xz"
	default:
		return fmt.Sprintf("plane(%d)", uint8(p))
	}
}

// ParsePlane accepts "xy" or "xz", case-insensitive.
func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xy":
		return PlaneXY, nil
	case "xz", "":
		return PlaneXZ, nil
	default:
		return 0, fmt.Errorf("unknown simulation plane %q", s)
	}
}

// Project drops the pinned axis.
func (p Plane) Project(v Vec3) Vec2 {
	if p == PlaneXY {
		return Vec2{v.X, v.Y}
	}
	return Vec2{v.X, v.Z}
}

// Embed writes a plane point back into carrier, leaving the pinned axis as is.
func (p Plane) Embed(v Vec2, carrier Vec3) Vec3 {
	if p == PlaneXY {
		return Vec3{v.X, v.Y, carrier.Z}
	}
	return Vec3{v.X, carrier.Y, v.Y}
}

package spatial

import (
	"math"

	"github.com/zeusync/crowdsync/internal/core/systems/physics"
)

// MaxCellsPerRadius bounds how many cells a query radius may span per axis.
// A query visits up to (2*MaxCellsPerRadius+1)^2 cells.
const MaxCellsPerRadius = 8

// MinCellSize is the smallest cell size that keeps a query of radius within
// MaxCellsPerRadius cells per axis.
func MinCellSize(radius float64) float64 {
	return radius / MaxCellsPerRadius
}

// Grid is a uniform bucket grid over plane positions. Rebuild it once per
// step; queries are read-only and safe from many goroutines afterwards.
type Grid struct {
	cellSize  float64
	invCell   float64
	cells     map[cellKey][]int
	positions []physics.Vec2
}

type cellKey struct{ x, y int32 }

// Neighbor is a query hit.
type Neighbor struct {
	Index  int
	DistSq float64
}

// NewGrid creates a grid with square cells of cellSize. Pick roughly the
// typical neighbor distance.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		invCell:  1 / cellSize,
		cells:    make(map[cellKey][]int),
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) cellOf(p physics.Vec2) cellKey {
	return cellKey{
		x: int32(math.Floor(p.X * g.invCell)),
		y: int32(math.Floor(p.Y * g.invCell)),
	}
}

// Rebuild indexes positions. The grid keeps the slice until the next
// Rebuild; the caller must not modify it in between.
func (g *Grid) Rebuild(positions []physics.Vec2) {
	for k, bucket := range g.cells {
		g.cells[k] = bucket[:0]
	}
	g.positions = positions

	for i, p := range positions {
		k := g.cellOf(p)
		g.cells[k] = append(g.cells[k], i)
	}

	for k, bucket := range g.cells {
		if len(bucket) == 0 {
			delete(g.cells, k)
		}
	}
}

// Len is the number of indexed positions.
func (g *Grid) Len() int { return len(g.positions) }

// Query appends to dst the indices within radius of center, nearest first,
// keeping at most maxResults. skip is excluded (pass -1 to keep all).
func (g *Grid) Query(center physics.Vec2, radius float64, maxResults, skip int, dst []Neighbor) []Neighbor {
	dst = dst[:0]
	if maxResults <= 0 || radius < 0 {
		return dst
	}

	radiusSq := radius * radius
	lo := g.cellOf(physics.V2(center.X-radius, center.Y-radius))
	hi := g.cellOf(physics.V2(center.X+radius, center.Y+radius))

	for cx := lo.x; cx <= hi.x; cx++ {
		for cy := lo.y; cy <= hi.y; cy++ {
			for _, idx := range g.cells[cellKey{cx, cy}] {
				if idx == skip {
					continue
				}
				distSq := g.positions[idx].Sub(center).LengthSq()
				if distSq > radiusSq {
					continue
				}
				dst = insertNeighbor(dst, Neighbor{Index: idx, DistSq: distSq}, maxResults)
			}
		}
	}
	return dst
}

// insertNeighbor keeps list ordered by (distance, index) and capped at limit,
// so results do not depend on bucket iteration order.
func insertNeighbor(list []Neighbor, n Neighbor, limit int) []Neighbor {
	if len(list) >= limit && !closer(n, list[len(list)-1]) {
		return list
	}

	i := len(list)
	for i > 0 && closer(n, list[i-1]) {
		i--
	}

	if len(list) < limit {
		list = append(list, Neighbor{})
	}
	copy(list[i+1:], list[i:len(list)-1])
	list[i] = n
	return list
}

func closer(a, b Neighbor) bool {
	if a.DistSq != b.DistSq {
		return a.DistSq < b.DistSq
	}
	return a.Index < b.Index
}

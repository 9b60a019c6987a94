package crowd

import (
	"math"

	"github.com/zeusync/crowdsync/internal/core/orca"
	"github.com/zeusync/crowdsync/internal/core/spatial"
	"github.com/zeusync/crowdsync/internal/core/systems/physics"
	"github.com/zeusync/crowdsync/pkg/generic"
)

// NeighborFinder produces per-agent neighbor lists for a step.
//
// Prepare is called once per step, before any Neighbors call, with the
// bodies published for that step. Neighbors is then called concurrently, at
// most once per agent index, and must only read state set up by Prepare.
type NeighborFinder interface {
	Prepare(bodies []orca.Body)
	Neighbors(i, limit int, dst []int) []int
}

var (
	_ NeighborFinder = (*GridFinder)(nil)
	_ NeighborFinder = FixedNeighbors(nil)
)

// GridFinder answers neighbor queries from a uniform grid, nearest first.
type GridFinder struct {
	grid      *spatial.Grid
	radius    float64
	positions []physics.Vec2
	scratch   *generic.Pool[*[]spatial.Neighbor]
}

// NewGridFinder returns a finder reporting agents within neighborDist. A
// cellSize of zero uses neighborDist; sizes so small that a query would
// span more than spatial.MaxCellsPerRadius cells are raised to that bound.
func NewGridFinder(cellSize, neighborDist float64) *GridFinder {
	if cellSize <= 0 {
		cellSize = neighborDist
	}
	cellSize = math.Max(cellSize, spatial.MinCellSize(neighborDist))
	return &GridFinder{
		grid:   spatial.NewGrid(cellSize),
		radius: neighborDist,
		scratch: generic.NewPool(
			func() *[]spatial.Neighbor {
				buf := make([]spatial.Neighbor, 0, 16)
				return &buf
			},
			func(buf *[]spatial.Neighbor) { *buf = (*buf)[:0] },
		),
	}
}

// CellSize is the edge length of the grid cells in use.
func (f *GridFinder) CellSize() float64 { return f.grid.CellSize() }

func (f *GridFinder) Prepare(bodies []orca.Body) {
	if cap(f.positions) < len(bodies) {
		f.positions = make([]physics.Vec2, len(bodies))
	}
	f.positions = f.positions[:len(bodies)]
	for i := range bodies {
		f.positions[i] = bodies[i].Position
	}
	f.grid.Rebuild(f.positions)
}

func (f *GridFinder) Neighbors(i, limit int, dst []int) []int {
	dst = dst[:0]
	buf := f.scratch.Get()
	*buf = f.grid.Query(f.positions[i], f.radius, limit, i, *buf)
	for _, n := range *buf {
		dst = append(dst, n.Index)
	}
	f.scratch.Put(buf)
	return dst
}

// FixedNeighbors serves neighbor lists computed elsewhere, indexed like the
// simulation's agents.
type FixedNeighbors [][]int

func (FixedNeighbors) Prepare([]orca.Body) {}

func (f FixedNeighbors) Neighbors(i, limit int, dst []int) []int {
	dst = dst[:0]
	if i >= len(f) {
		return dst
	}
	list := f[i]
	if len(list) > limit {
		list = list[:limit]
	}
	return append(dst, list...)
}

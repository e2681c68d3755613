package physics

import "math"

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// Grid maps cells to slot indices of the particle slice it was built from.
// Slots are resolved once per build, so collision code never searches by id.
//
// The cell size should be at least the largest particle diameter; otherwise a
// colliding pair may sit further apart than one neighbouring cell.
type Grid struct {
	cellSize float64
	cells    map[Cell][]int
	order    []Cell // First-insertion order, keeps passes deterministic
	count    int
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[Cell][]int)}
}

// Build indexes ps from scratch. Slices from the previous build are reused.
func (g *Grid) Build(ps []Particle, cellSize float64) {
	g.reset()
	g.cellSize = cellSize
	for i := range ps {
		c := g.CellOf(ps[i].X, ps[i].Y)
		slots, ok := g.cells[c]
		if !ok || len(slots) == 0 {
			g.order = append(g.order, c)
		}
		g.cells[c] = append(slots, i)
		g.count++
	}
}

func (g *Grid) reset() {
	for _, c := range g.order {
		g.cells[c] = g.cells[c][:0]
	}
	// Drop stale empty cells once the map grows well past the live set
	if len(g.cells) > 4*len(g.order)+64 {
		clear(g.cells)
	}
	g.order = g.order[:0]
	g.count = 0
}

// CellOf returns the cell containing the point.
func (g *Grid) CellOf(x, y float64) Cell {
	return Cell{
		X: int(math.Floor(x / g.cellSize)),
		Y: int(math.Floor(y / g.cellSize)),
	}
}

// At returns the slots in a cell, nil when empty. Callers must not retain it
// past the next Build.
func (g *Grid) At(c Cell) []int {
	return g.cells[c]
}

// Cells returns occupied cells in first-insertion order.
func (g *Grid) Cells() []Cell {
	return g.order
}

// Len returns the number of indexed particles.
func (g *Grid) Len() int {
	return g.count
}

// CellSize returns the size used by the last Build.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

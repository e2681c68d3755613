package physics

// neighbours are the eight cells around a cell, self excluded.
var neighbours = [8]Cell{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// pairKey is an unordered pair of particle ids, lo <= hi.
type pairKey struct {
	lo, hi uint64
}

func makePairKey(a, b uint64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// PassStats summarises one collision pass.
type PassStats struct {
	Cells      int // Occupied cells
	Pairs      int // Unordered pairs tested
	Collisions int // Pairs that overlapped and were resolved
}

// CollisionPass resolves every overlapping pair of a particle set once.
// A pass keeps its grid and pair set between runs and is not safe for
// concurrent use.
type CollisionPass struct {
	grid    *Grid
	checked map[pairKey]struct{}
}

// NewCollisionPass creates a reusable pass.
func NewCollisionPass() *CollisionPass {
	return &CollisionPass{
		grid:    NewGrid(),
		checked: make(map[pairKey]struct{}),
	}
}

// Run resolves collisions in ps in place, then clamps every particle back above
// the ground line of bounds. IDs, sizes, colours and bounce counts are untouched.
func (cp *CollisionPass) Run(ps []Particle, cellSize float64, bounds Bounds) PassStats {
	var stats PassStats
	if len(ps) < 2 {
		return stats
	}

	cp.grid.Build(ps, cellSize)
	clear(cp.checked)

	cells := cp.grid.Cells()
	stats.Cells = len(cells)

	for _, c := range cells {
		slots := cp.grid.At(c)

		// Same-cell pairs
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				cp.check(ps, slots[i], slots[j], &stats)
			}
		}

		// Cross-cell pairs against every neighbour
		for _, n := range neighbours {
			other := cp.grid.At(Cell{X: c.X + n.X, Y: c.Y + n.Y})
			if len(other) == 0 {
				continue
			}
			for _, i := range slots {
				for _, j := range other {
					cp.check(ps, i, j, &stats)
				}
			}
		}
	}

	for i := range ps {
		if ground := bounds.Ground(ps[i].Size); ps[i].Y > ground {
			ps[i].Y = ground
		}
	}
	return stats
}

func (cp *CollisionPass) check(ps []Particle, i, j int, stats *PassStats) {
	a, b := &ps[i], &ps[j]
	if a.ID == b.ID {
		return
	}
	key := makePairKey(a.ID, b.ID)
	if _, seen := cp.checked[key]; seen {
		return
	}
	cp.checked[key] = struct{}{}
	stats.Pairs++
	if Resolve(a, b) {
		stats.Collisions++
	}
}

// Checked reports whether the last Run tested the pair.
func (cp *CollisionPass) Checked(a, b uint64) bool {
	_, ok := cp.checked[makePairKey(a, b)]
	return ok
}

// Grid exposes the index built by the last Run.
func (cp *CollisionPass) Grid() *Grid {
	return cp.grid
}

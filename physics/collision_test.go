package physics

import (
	"image/color"
	"math"
	"testing"
)

// lattice lays out n*n particles spaced step apart from (x0, y0).
func lattice(n int, x0, y0, step, size float64) []Particle {
	ps := make([]Particle, 0, n*n)
	id := uint64(1)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			ps = append(ps, Particle{
				ID:    id,
				X:     x0 + float64(col)*step,
				Y:     y0 + float64(row)*step,
				Size:  size,
				Color: color.RGBA{G: uint8(id), A: 255},
			})
			id++
		}
	}
	return ps
}

func adjacent(a, b Cell) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1
}

func TestCollisionPass_TestsEachNeighbourPairOnce(t *testing.T) {
	const cellSize = 10.0
	ps := lattice(6, 3, 3, 7, 8)

	g := NewGrid()
	g.Build(ps, cellSize)
	want := 0
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if adjacent(g.CellOf(ps[i].X, ps[i].Y), g.CellOf(ps[j].X, ps[j].Y)) {
				want++
			}
		}
	}

	cp := NewCollisionPass()
	stats := cp.Run(ps, cellSize, Bounds{Width: 1000, Height: 1000})

	if stats.Pairs != want {
		t.Fatalf("pairs tested = %d, want %d", stats.Pairs, want)
	}
	if stats.Pairs > len(ps)*(len(ps)-1)/2 {
		t.Fatalf("more pairs than unordered combinations: %d", stats.Pairs)
	}
	if stats.Collisions == 0 {
		t.Fatalf("expected overlapping lattice to produce collisions")
	}
	if !cp.Checked(1, 2) || !cp.Checked(2, 1) {
		t.Fatalf("pair (1,2) must be recorded order-independently")
	}
}

func TestCollisionPass_LeavesBookkeepingUntouched(t *testing.T) {
	ps := lattice(4, 100, 100, 6, 10)
	for i := range ps {
		ps[i].BounceCount = i
	}
	before := make([]Particle, len(ps))
	copy(before, ps)

	NewCollisionPass().Run(ps, 20, Bounds{Width: 800, Height: 600})

	for i := range ps {
		if ps[i].ID != before[i].ID || ps[i].Size != before[i].Size ||
			ps[i].Color != before[i].Color || ps[i].BounceCount != before[i].BounceCount {
			t.Fatalf("slot %d bookkeeping changed: %+v -> %+v", i, before[i], ps[i])
		}
	}
}

func TestCollisionPass_SeparatesIsolatedPair(t *testing.T) {
	ps := []Particle{
		{ID: 10, X: 99, Y: 50, Size: 20, Velocity: 2},
		{ID: 11, X: 105, Y: 52, Size: 20, Velocity: -1},
		{ID: 12, X: 400, Y: 50, Size: 20},
	}

	stats := NewCollisionPass().Run(ps, 40, Bounds{Width: 800, Height: 600})

	if stats.Collisions != 1 {
		t.Fatalf("collisions = %d, want 1", stats.Collisions)
	}
	if d := distance(ps[0], ps[1]); math.Abs(d-20) > 1e-9 {
		t.Fatalf("pair distance = %v, want 20", d)
	}
	if ps[2].X != 400 || ps[2].Y != 50 {
		t.Fatalf("isolated particle moved: %+v", ps[2])
	}
}

func TestCollisionPass_CrossCellPair(t *testing.T) {
	// Straddles the x=40 boundary
	ps := []Particle{
		{ID: 1, X: 36, Y: 10, Size: 10},
		{ID: 2, X: 42, Y: 10, Size: 10},
	}

	stats := NewCollisionPass().Run(ps, 40, Bounds{Width: 800, Height: 600})

	if stats.Pairs != 1 || stats.Collisions != 1 {
		t.Fatalf("stats = %+v, want one pair resolved once", stats)
	}
	if d := distance(ps[0], ps[1]); math.Abs(d-10) > 1e-9 {
		t.Fatalf("pair distance = %v, want 10", d)
	}
}

func TestCollisionPass_ClampsToGround(t *testing.T) {
	bounds := Bounds{Width: 800, Height: 600}
	ground := bounds.Ground(20)
	ps := []Particle{
		{ID: 1, X: 300, Y: ground - 15, Size: 20},
		{ID: 2, X: 300, Y: ground, Size: 20},
	}

	NewCollisionPass().Run(ps, 40, bounds)

	for _, p := range ps {
		if p.Y > bounds.Ground(p.Size) {
			t.Fatalf("particle %d pushed below ground: y=%v", p.ID, p.Y)
		}
	}
}

func TestCollisionPass_FewerThanTwoIsNoop(t *testing.T) {
	ps := []Particle{{ID: 1, X: 10, Y: 10, Size: 10}}
	if stats := NewCollisionPass().Run(ps, 40, Bounds{Width: 100, Height: 100}); stats != (PassStats{}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCollisionPass_ReusableAcrossRuns(t *testing.T) {
	cp := NewCollisionPass()
	bounds := Bounds{Width: 800, Height: 600}

	first := cp.Run(lattice(3, 100, 100, 6, 10), 20, bounds)
	second := cp.Run(lattice(3, 100, 100, 6, 10), 20, bounds)

	if first != second {
		t.Fatalf("identical input gave different stats: %+v vs %+v", first, second)
	}
}

// Package physics holds the particle model and the per-frame math: integration,
// spatial indexing and pairwise collision resolution.
package physics

import (
	"image/color"
	"math"
)

// Particle is a single circular body. Identity is ID, never the slice position.
type Particle struct {
	ID          uint64
	X, Y        float64    // Centre, screen space
	Size        float64    // Diameter in pixels, drives radius and mass
	Velocity    float64    // Vertical speed, positive is downward
	Rotation    float64    // Cosmetic spin in degrees
	BounceCount int        // Ground strikes so far
	Color       color.RGBA // Fixed at spawn
	Resting     bool       // Pinned to the ground, no more velocity integration
}

// Radius returns half the diameter.
func (p *Particle) Radius() float64 {
	return p.Size / 2
}

// Mass uses an area-proportional model.
func (p *Particle) Mass() float64 {
	return p.Size * p.Size
}

// Finite reports whether every numeric field is a usable number.
func (p *Particle) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Velocity) &&
		isFinite(p.Rotation) && isFinite(p.Size) && p.Size > 0
}

// Bounds is the viewport the simulation runs in.
type Bounds struct {
	Width, Height float64
}

// Ground returns the lowest centre line a particle of the given size may occupy.
func (b Bounds) Ground(size float64) float64 {
	return b.Height - size/2
}

// Outside reports whether a particle has left the horizontal bounds or risen
// past the top edge.
func (b Bounds) Outside(p *Particle) bool {
	return p.X < -p.Size || p.X > b.Width+p.Size || p.Y < -p.Size
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

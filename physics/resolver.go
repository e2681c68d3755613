package physics

import "math"

// Resolve separates two overlapping particles and exchanges vertical momentum
// with the 1-D elastic formula. Both are mutated in place. Returns false when
// the pair does not overlap or sits at exactly the same point, where the
// collision normal is undefined.
func Resolve(a, b *Particle) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	distSq := dx*dx + dy*dy
	minDist := (a.Size + b.Size) / 2

	// Squared compare, no sqrt on the common path
	if distSq >= minDist*minDist {
		return false
	}
	if distSq == 0 {
		return false
	}

	dist := math.Sqrt(distSq)

	m1 := a.Mass()
	m2 := b.Mass()
	v1 := a.Velocity
	v2 := b.Velocity
	total := m1 + m2

	a.Velocity = ((m1-m2)*v1 + 2*m2*v2) / total
	b.Velocity = ((m2-m1)*v2 + 2*m1*v1) / total

	angle := math.Atan2(dy, dx)
	half := (minDist - dist) / 2
	moveX := half * math.Cos(angle)
	moveY := half * math.Sin(angle)

	a.X -= moveX
	a.Y -= moveY
	b.X += moveX
	b.Y += moveY
	return true
}

package physics

import (
	"errors"
	"fmt"
	"math"
)

// groundEpsilon absorbs float noise when testing "on the ground line".
const groundEpsilon = 1e-9

var (
	// ErrInvalidParams is returned when physical constants are out of range.
	ErrInvalidParams = errors.New("invalid physics params")
)

// Params are the fixed physical constants of a session.
type Params struct {
	Gravity         float64 `json:"gravity"`          // Added to velocity every frame
	Friction        float64 `json:"friction"`         // Velocity multiplier while airborne
	BounceRetention float64 `json:"bounce_retention"` // Share of speed kept after a ground strike
	MaxBounces      int     `json:"max_bounces"`      // Ground strikes before forced rest
	RestThreshold   float64 `json:"rest_threshold"`   // Speed below which a grounded particle rests
	RotationScale   float64 `json:"rotation_scale"`   // Degrees of spin per unit of velocity
}

// DefaultParams returns the constants the frontends ship with.
func DefaultParams() Params {
	return Params{
		Gravity:         0.5,
		Friction:        0.99,
		BounceRetention: 0.7,
		MaxBounces:      5,
		RestThreshold:   1.0,
		RotationScale:   2.0,
	}
}

// Validate checks the constants for values that would break the integrator.
func (p Params) Validate() error {
	switch {
	case p.Gravity < 0 || !isFinite(p.Gravity):
		return fmt.Errorf("%w: gravity %v", ErrInvalidParams, p.Gravity)
	case p.Friction <= 0 || p.Friction > 1:
		return fmt.Errorf("%w: friction %v not in (0, 1]", ErrInvalidParams, p.Friction)
	case p.BounceRetention < 0 || p.BounceRetention > 1:
		return fmt.Errorf("%w: bounce retention %v not in [0, 1]", ErrInvalidParams, p.BounceRetention)
	case p.MaxBounces < 1:
		return fmt.Errorf("%w: max bounces %d", ErrInvalidParams, p.MaxBounces)
	case p.RestThreshold < 0:
		return fmt.Errorf("%w: rest threshold %v", ErrInvalidParams, p.RestThreshold)
	}
	return nil
}

// Integrate advances every particle in src by one frame and appends the
// survivors to dst[:0]. dst may alias src. Horizontal position is never touched.
func Integrate(dst, src []Particle, params Params, bounds Bounds) []Particle {
	out := dst[:0]
	for i := range src {
		p := src[i]
		if bounds.Outside(&p) {
			continue
		}
		ground := bounds.Ground(p.Size)

		if p.Resting {
			p.Velocity = 0
			p.Y = ground
			out = append(out, p)
			continue
		}

		v := p.Velocity + params.Gravity
		y := p.Y + v

		if y > ground {
			y = ground
			v = -v * params.BounceRetention
			p.BounceCount++
		}

		grounded := y >= ground-groundEpsilon
		if p.BounceCount >= params.MaxBounces || (grounded && math.Abs(v) < params.RestThreshold) {
			p.Velocity = 0
			p.Y = ground
			p.Resting = true
			out = append(out, p)
			continue
		}

		v *= params.Friction
		p.Velocity = v
		p.Y = y
		p.Rotation += v * params.RotationScale
		out = append(out, p)
	}
	return out
}

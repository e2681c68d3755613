// Package autoplay generates spawn points without a pointer, for the demo mode
// and the headless benchmark.
package autoplay

import (
	"errors"
	"fmt"

	"github.com/aquilax/go-perlin"
)

const (
	alpha  = 2.0
	beta   = 2.0
	octave = 3
)

var (
	// ErrInvalidDriver is returned for unusable driver settings.
	ErrInvalidDriver = errors.New("invalid autoplay driver")
)

// Spawner is anything that accepts a spawn point.
type Spawner interface {
	Spawn(x, y float64)
}

// SpawnFunc adapts a function to Spawner.
type SpawnFunc func(x, y float64)

// Spawn calls f.
func (f SpawnFunc) Spawn(x, y float64) {
	f(x, y)
}

// Config tunes the wandering spawn point.
type Config struct {
	Every  int     // Frames between spawns
	Speed  float64 // Noise-space advance per frame
	Margin float64 // Share of the viewport kept free on each side
	Upper  float64 // Spawns stay in the top share of the viewport
	Seed   int64
}

// DefaultConfig spawns every 20 frames in the upper half.
func DefaultConfig() Config {
	return Config{
		Every:  20,
		Speed:  0.01,
		Margin: 0.1,
		Upper:  0.5,
		Seed:   1,
	}
}

// Driver walks a spawn point along smooth perlin noise and fires a spawn
// every Config.Every frames.
type Driver struct {
	cfg   Config
	noise *perlin.Perlin
	t     float64
	frame int
}

// NewDriver validates cfg and seeds the noise.
func NewDriver(cfg Config) (*Driver, error) {
	switch {
	case cfg.Every <= 0:
		return nil, fmt.Errorf("%w: every %d", ErrInvalidDriver, cfg.Every)
	case cfg.Speed <= 0:
		return nil, fmt.Errorf("%w: speed %v", ErrInvalidDriver, cfg.Speed)
	case cfg.Margin < 0 || cfg.Margin >= 0.5:
		return nil, fmt.Errorf("%w: margin %v", ErrInvalidDriver, cfg.Margin)
	case cfg.Upper <= 0 || cfg.Upper > 1:
		return nil, fmt.Errorf("%w: upper %v", ErrInvalidDriver, cfg.Upper)
	}
	return &Driver{
		cfg:   cfg,
		noise: perlin.NewPerlin(alpha, beta, octave, cfg.Seed),
	}, nil
}

// Point returns the current spawn point inside a width x height viewport.
func (d *Driver) Point(width, height float64) (float64, float64) {
	// Noise1D stays roughly within [-1, 1]; offset y so the axes decorrelate
	nx := clamp01(0.5 + d.noise.Noise1D(d.t)/1.5)
	ny := clamp01(0.5 + d.noise.Noise1D(d.t+1000)/1.5)

	x := width*d.cfg.Margin + nx*width*(1-2*d.cfg.Margin)
	y := height*d.cfg.Margin + ny*(height*d.cfg.Upper-height*d.cfg.Margin)
	return x, y
}

// Step advances one frame and spawns through sp when due. Reports whether it
// spawned.
func (d *Driver) Step(width, height float64, sp Spawner) bool {
	d.t += d.cfg.Speed
	d.frame++
	if d.frame%d.cfg.Every != 0 {
		return false
	}
	sp.Spawn(d.Point(width, height))
	return true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

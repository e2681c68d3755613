package engine

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/olivierh59500/particle-bounce-go/physics"
)

var (
	// ErrInvalidSpawnConfig is returned for unusable spawn ranges.
	ErrInvalidSpawnConfig = errors.New("invalid spawn config")
)

// SpawnConfig fixes the shape of one spawn batch.
type SpawnConfig struct {
	BatchSize int     `json:"batch_size"`
	Radius    float64 `json:"radius"` // Circle the batch is laid out on
	MinSize   float64 `json:"min_size"`
	MaxSize   float64 `json:"max_size"`
	MinSpeed  float64 `json:"min_speed"` // Upward launch speed
	MaxSpeed  float64 `json:"max_speed"`
	HueMin    float64 `json:"hue_min"` // Degrees
	HueMax    float64 `json:"hue_max"`
	SatMin    float64 `json:"sat_min"`
	SatMax    float64 `json:"sat_max"`
	LightMin  float64 `json:"light_min"`
	LightMax  float64 `json:"light_max"`
}

// DefaultSpawnConfig returns a green burst of 15.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		BatchSize: 15,
		Radius:    20,
		MinSize:   12,
		MaxSize:   36,
		MinSpeed:  4,
		MaxSpeed:  12,
		HueMin:    100,
		HueMax:    140,
		SatMin:    0.5,
		SatMax:    0.9,
		LightMin:  0.35,
		LightMax:  0.6,
	}
}

// Validate rejects empty batches and inverted or out-of-range intervals.
func (c SpawnConfig) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d", ErrInvalidSpawnConfig, c.BatchSize)
	case c.Radius < 0:
		return fmt.Errorf("%w: radius %v", ErrInvalidSpawnConfig, c.Radius)
	case c.MinSize <= 0 || c.MaxSize < c.MinSize:
		return fmt.Errorf("%w: size range [%v, %v]", ErrInvalidSpawnConfig, c.MinSize, c.MaxSize)
	case c.MinSpeed < 0 || c.MaxSpeed < c.MinSpeed:
		return fmt.Errorf("%w: speed range [%v, %v]", ErrInvalidSpawnConfig, c.MinSpeed, c.MaxSpeed)
	case c.HueMax < c.HueMin:
		return fmt.Errorf("%w: hue range [%v, %v]", ErrInvalidSpawnConfig, c.HueMin, c.HueMax)
	case c.SatMin < 0 || c.SatMax > 1 || c.SatMax < c.SatMin:
		return fmt.Errorf("%w: saturation range [%v, %v]", ErrInvalidSpawnConfig, c.SatMin, c.SatMax)
	case c.LightMin < 0 || c.LightMax > 1 || c.LightMax < c.LightMin:
		return fmt.Errorf("%w: lightness range [%v, %v]", ErrInvalidSpawnConfig, c.LightMin, c.LightMax)
	}
	return nil
}

// Spawner turns a pointer-down point into a batch of particles.
type Spawner struct {
	cfg   SpawnConfig
	store *Store

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSpawner creates a spawner feeding store.
func NewSpawner(cfg SpawnConfig, store *Store, seed int64) (*Spawner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidSpawnConfig)
	}
	return &Spawner{
		cfg:   cfg,
		store: store,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Spawn lays a batch out evenly on a circle around (x, y), queues it in the
// store and returns it. Safe to call from any goroutine; the batch joins the
// simulation at the next frame boundary.
func (sp *Spawner) Spawn(x, y float64) []physics.Particle {
	n := sp.cfg.BatchSize
	first := sp.store.Reserve(n)
	batch := make([]physics.Particle, n)

	sp.mu.Lock()
	for i := range batch {
		angle := 2 * math.Pi * float64(i) / float64(n)
		batch[i] = physics.Particle{
			ID:       first + uint64(i),
			X:        x + sp.cfg.Radius*math.Cos(angle),
			Y:        y + sp.cfg.Radius*math.Sin(angle),
			Size:     sp.between(sp.cfg.MinSize, sp.cfg.MaxSize),
			Velocity: -sp.between(sp.cfg.MinSpeed, sp.cfg.MaxSpeed),
			Rotation: sp.rng.Float64() * 360,
			Color:    sp.color(),
		}
	}
	sp.mu.Unlock()

	sp.store.Enqueue(batch)
	return batch
}

// Config returns the batch shape.
func (sp *Spawner) Config() SpawnConfig {
	return sp.cfg
}

func (sp *Spawner) between(lo, hi float64) float64 {
	return lo + sp.rng.Float64()*(hi-lo)
}

func (sp *Spawner) color() color.RGBA {
	c := colorful.Hsl(
		sp.between(sp.cfg.HueMin, sp.cfg.HueMax),
		sp.between(sp.cfg.SatMin, sp.cfg.SatMax),
		sp.between(sp.cfg.LightMin, sp.cfg.LightMax),
	).Clamped()
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

package autoplay

import (
	"errors"
	"testing"
)

func TestDriver_SpawnsOnSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Every = 5
	d, err := NewDriver(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var points [][2]float64
	sp := SpawnFunc(func(x, y float64) { points = append(points, [2]float64{x, y}) })

	for frame := 1; frame <= 50; frame++ {
		spawned := d.Step(800, 600, sp)
		if spawned != (frame%5 == 0) {
			t.Fatalf("frame %d: spawned=%v", frame, spawned)
		}
	}
	if len(points) != 10 {
		t.Fatalf("spawned %d times, want 10", len(points))
	}
}

func TestDriver_PointsStayInBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Every = 1
	cfg.Speed = 0.37
	d, err := NewDriver(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const w, h = 1000.0, 500.0
	sp := SpawnFunc(func(x, y float64) {
		if x < w*cfg.Margin-1e-9 || x > w*(1-cfg.Margin)+1e-9 {
			t.Fatalf("x=%v outside horizontal band", x)
		}
		if y < h*cfg.Margin-1e-9 || y > h*cfg.Upper+1e-9 {
			t.Fatalf("y=%v outside vertical band", y)
		}
	})
	for i := 0; i < 500; i++ {
		d.Step(w, h, sp)
	}
}

func TestDriver_SameSeedSamePath(t *testing.T) {
	a, _ := NewDriver(DefaultConfig())
	b, _ := NewDriver(DefaultConfig())

	for i := 0; i < 20; i++ {
		ax, ay := a.Point(640, 480)
		bx, by := b.Point(640, 480)
		if ax != bx || ay != by {
			t.Fatalf("step %d: paths diverge (%v,%v) vs (%v,%v)", i, ax, ay, bx, by)
		}
		a.Step(640, 480, SpawnFunc(func(float64, float64) {}))
		b.Step(640, 480, SpawnFunc(func(float64, float64) {}))
	}
}

func TestNewDriver_RejectsBadConfig(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Every = 0 },
		func(c *Config) { c.Speed = 0 },
		func(c *Config) { c.Margin = 0.5 },
		func(c *Config) { c.Upper = 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := NewDriver(cfg); !errors.Is(err, ErrInvalidDriver) {
			t.Fatalf("case %d: expected ErrInvalidDriver, got %v", i, err)
		}
	}
}

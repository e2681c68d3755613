package main

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/olivierh59500/particle-bounce-go/autoplay"
	"github.com/olivierh59500/particle-bounce-go/config"
	"github.com/olivierh59500/particle-bounce-go/engine"
	"github.com/olivierh59500/particle-bounce-go/physics"
)

const defaultConfigFile = "particles.json"

var background = color.RGBA{R: 250, G: 250, B: 250, A: 255}

// Simulation struct: the ebiten game around the scheduler
type Simulation struct {
	Width, Height float64 // Layout size, queried by the scheduler each tick
	Paused        bool
	Demo          bool // Autoplay spawns
	Debug         bool // Stats overlay

	cfg        config.Config
	configPath string
	logger     *slog.Logger

	store   *engine.Store
	spawner *engine.Spawner
	sched   *engine.Scheduler
	driver  *autoplay.Driver

	touchIDs []ebiten.TouchID
}

// NewSimulation wires store, spawner and scheduler for the window
func NewSimulation(ctx context.Context, cfg config.Config, configPath string, logger *slog.Logger, seed int64) (*Simulation, error) {
	s := &Simulation{
		Width:      float64(cfg.WindowWidth),
		Height:     float64(cfg.WindowHeight),
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		store:      engine.NewStore(),
	}

	spawner, err := engine.NewSpawner(cfg.Spawn, s.store, seed)
	if err != nil {
		return nil, err
	}
	s.spawner = spawner

	var factory engine.OffloaderFactory
	if cfg.Offload {
		factory = engine.WorkerFactory(logger)
	}
	sched, err := engine.NewScheduler(ctx, engine.SchedulerConfig{
		Physics:      cfg.Physics,
		GridCellSize: cfg.GridCellSize,
		Offload:      factory,
		Logger:       logger,
	}, s.store, s)
	if err != nil {
		return nil, err
	}
	s.sched = sched

	drive := autoplay.DefaultConfig()
	drive.Seed = seed
	s.driver, err = autoplay.NewDriver(drive)
	if err != nil {
		sched.Close()
		return nil, err
	}
	return s, nil
}

// Size reports the viewport to the scheduler
func (s *Simulation) Size() (float64, float64) {
	return s.Width, s.Height
}

// Update is called each tick by Ebitengine
func (s *Simulation) Update() error {
	// Handle input
	if err := s.handleInput(); err != nil {
		return err
	}

	if s.Paused {
		return nil
	}

	if s.Demo {
		s.driver.Step(s.Width, s.Height, autoplay.SpawnFunc(s.spawn))
	}

	s.sched.Tick()
	return nil
}

// Draw is called each frame by Ebitengine
func (s *Simulation) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	for _, p := range s.sched.Snapshot() {
		drawParticle(screen, p)
	}

	if s.Debug {
		st := s.sched.Stats()
		ebitenutil.DebugPrint(screen, fmt.Sprintf(
			"TPS %.0f  particles %d  mode %s\npasses inline %d offloaded %d  coalesced %d  faults %d\npairs %d  collisions %d  batch %d",
			ebiten.ActualTPS(), st.Particles, st.Mode,
			st.InlinePasses, st.OffloadedPasses, st.Coalesced, st.Faults,
			st.LastPass.Pairs, st.LastPass.Collisions, s.spawner.Config().BatchSize,
		))
	}
}

// Layout follows the window so the viewport tracks resizes
func (s *Simulation) Layout(outsideWidth, outsideHeight int) (int, int) {
	s.Width = float64(outsideWidth)
	s.Height = float64(outsideHeight)
	return outsideWidth, outsideHeight
}

// Close tears the scheduler down
func (s *Simulation) Close() {
	s.sched.Close()
}

// handleInput processes keyboard, mouse and touch input
func (s *Simulation) handleInput() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		s.Paused = !s.Paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		s.sched.Reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		s.Demo = !s.Demo
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		s.Debug = !s.Debug
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		s.saveConfig()
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		mx, my := ebiten.CursorPosition()
		s.spawn(float64(mx), float64(my))
	}

	s.touchIDs = inpututil.AppendJustPressedTouchIDs(s.touchIDs[:0])
	for _, id := range s.touchIDs {
		tx, ty := ebiten.TouchPosition(id)
		s.spawn(float64(tx), float64(ty))
	}
	return nil
}

func (s *Simulation) spawn(x, y float64) {
	s.spawner.Spawn(x, y)
}

// saveConfig writes the running settings, not the particles
func (s *Simulation) saveConfig() {
	path := s.configPath
	if path == "" {
		path = defaultConfigFile
	}
	if err := s.cfg.Save(path); err != nil {
		s.logger.Warn("save config failed", "path", path, "err", err)
		return
	}
	s.logger.Info("config saved", "path", path)
}

// drawParticle draws the body and a spoke showing its spin
func drawParticle(screen *ebiten.Image, p physics.Particle) {
	cx, cy := float32(p.X), float32(p.Y)
	r := float32(p.Radius())
	vector.DrawFilledCircle(screen, cx, cy, r, p.Color, true)

	rad := p.Rotation * math.Pi / 180
	ex := cx + float32(math.Cos(rad))*r*0.8
	ey := cy + float32(math.Sin(rad))*r*0.8
	vector.StrokeLine(screen, cx, cy, ex, ey, 2, shade(p.Color, 0.6), true)
}

// shade darkens a colour by factor
func shade(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

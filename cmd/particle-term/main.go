// Command particle-term runs the particle simulation inside a terminal.
// Each character cell stands for a block of simulation pixels, so the
// physics sees the same viewport scale as the window frontend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/olivierh59500/particle-bounce-go/autoplay"
	"github.com/olivierh59500/particle-bounce-go/config"
	"github.com/olivierh59500/particle-bounce-go/engine"
	"github.com/olivierh59500/particle-bounce-go/physics"
)

const (
	cellWidth  = 8  // Simulation pixels per column
	cellHeight = 16 // Simulation pixels per row
	frameTime  = 16 * time.Millisecond
)

// termView maps the terminal size to simulation pixels.
type termView struct {
	cols, rows int
}

func (v *termView) Size() (float64, float64) {
	return float64(v.cols * cellWidth), float64(v.rows * cellHeight)
}

type Game struct {
	screen tcell.Screen
	view   *termView
	logger *slog.Logger

	store   *engine.Store
	spawner *engine.Spawner
	sched   *engine.Scheduler
	driver  *autoplay.Driver
	sound   *Sound

	demo    bool
	paused  bool
	pressed bool // Button1 held since last event
	bounces *bounceTracker
}

func NewGame(ctx context.Context, cfg config.Config, logger *slog.Logger, screen tcell.Screen, seed int64) (*Game, error) {
	cols, rows := screen.Size()
	g := &Game{
		screen:  screen,
		view:    &termView{cols: cols, rows: rows},
		logger:  logger,
		store:   engine.NewStore(),
		bounces: newBounceTracker(),
	}

	var err error
	g.spawner, err = engine.NewSpawner(cfg.Spawn, g.store, seed)
	if err != nil {
		return nil, err
	}

	var factory engine.OffloaderFactory
	if cfg.Offload {
		factory = engine.WorkerFactory(logger)
	}
	g.sched, err = engine.NewScheduler(ctx, engine.SchedulerConfig{
		Physics:      cfg.Physics,
		GridCellSize: cfg.GridCellSize,
		Offload:      factory,
		Logger:       logger,
	}, g.store, g.view)
	if err != nil {
		return nil, err
	}

	drive := autoplay.DefaultConfig()
	drive.Seed = seed
	g.driver, err = autoplay.NewDriver(drive)
	if err != nil {
		g.sched.Close()
		return nil, err
	}
	return g, nil
}

// handleInput returns false when the game should exit
func (g *Game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'c':
				g.sched.Reset()
				g.bounces.Reset()
			case 'd':
				g.demo = !g.demo
			case ' ':
				g.paused = !g.paused
			}
		}

	case *tcell.EventMouse:
		down := ev.Buttons()&tcell.Button1 != 0
		if down && !g.pressed {
			col, row := ev.Position()
			// Centre of the clicked cell
			g.spawner.Spawn(float64(col*cellWidth+cellWidth/2), float64(row*cellHeight+cellHeight/2))
		}
		g.pressed = down

	case *tcell.EventResize:
		g.view.cols, g.view.rows = g.screen.Size()
		g.screen.Sync()
	}
	return true
}

func (g *Game) update() {
	if g.paused {
		return
	}
	if g.demo {
		w, h := g.view.Size()
		g.driver.Step(w, h, autoplay.SpawnFunc(func(x, y float64) { g.spawner.Spawn(x, y) }))
	}
	g.sched.Tick()
}

func (g *Game) draw() {
	g.screen.Clear()

	snapshot := g.sched.Snapshot()
	for _, p := range snapshot {
		col, row := cellOf(p)
		if col < 0 || row < 0 || col >= g.view.cols || row >= g.view.rows {
			continue
		}
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(p.Color.R), int32(p.Color.G), int32(p.Color.B)))
		g.screen.SetContent(col, row, glyph(p), nil, style)
	}

	// One tick per frame with fresh bounces
	if g.bounces.Observe(snapshot) > 0 {
		g.sound.Tick()
	}

	st := g.sched.Stats()
	status := fmt.Sprintf(" %d particles  %s  faults %d  [click] spawn [d]emo [c]lear [space] pause [q]uit ",
		st.Particles, st.Mode, st.Faults)
	for i, r := range status {
		if i >= g.view.cols {
			break
		}
		g.screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Reverse(true))
	}

	g.screen.Show()
}

func (g *Game) run(ctx context.Context) {
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return
			}
		case <-ticker.C:
			g.update()
			g.draw()
		}
	}
}

func (g *Game) cleanup() {
	g.sched.Close()
	g.sound.Close()
	g.screen.Fini()
}

func cellOf(p physics.Particle) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

// glyph picks a rune by size, resting particles flatten
func glyph(p physics.Particle) rune {
	switch {
	case p.Resting:
		return '▂'
	case p.Size >= 28:
		return '●'
	case p.Size >= 18:
		return '•'
	default:
		return '·'
	}
}

func main() {
	inline := flag.Bool("inline", false, "run the collision pass on the frame loop")
	demo := flag.Bool("demo", false, "spawn particles automatically")
	sound := flag.Bool("sound", false, "tick on bounces")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *inline {
		cfg.Offload = false
	}

	// The screen owns the terminal, logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := config.NewLogger(cfg.LogLevel, logOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.HideCursor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	game, err := NewGame(ctx, cfg, logger, screen, time.Now().UnixNano())
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	game.demo = *demo
	if *sound {
		game.sound, err = NewSound()
		if err != nil {
			// Non-fatal, runs without sound
			logger.Warn("audio initialization failed", "err", err)
		}
	}
	defer game.cleanup()

	logger.Info("starting", "session", game.sched.Session(), "offload", cfg.Offload)
	game.run(ctx)
	st := game.sched.Stats()
	logger.Info("stopped", "frames", st.Frames, "mode", st.Mode, "faults", st.Faults)
}

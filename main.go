package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/olivierh59500/particle-bounce-go/config"
)

func main() {
	configPath := flag.String("config", config.GetEnvDefault(config.EnvConfigPath, ""), "JSON config file")
	inline := flag.Bool("inline", false, "run the collision pass on the frame loop")
	demo := flag.Bool("demo", false, "spawn particles automatically")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.LogLevel = config.GetEnvDefault(config.EnvLogLevel, cfg.LogLevel)
	if *inline {
		cfg.Offload = false
	}

	logger, err := config.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize simulation with the loaded parameters
	sim, err := NewSimulation(ctx, cfg, *configPath, logger, time.Now().UnixNano())
	if err != nil {
		log.Fatal(err)
	}
	defer sim.Close()
	sim.Demo = *demo

	// Set up Ebitengine game
	ebiten.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	ebiten.SetWindowTitle("Particle Bounce")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.TPS)

	logger.Info("starting", "offload", cfg.Offload, "tps", cfg.TPS, "session", sim.sched.Session())

	// Run the game loop
	if err := ebiten.RunGame(sim); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}

	st := sim.sched.Stats()
	logger.Info("stopped", "frames", st.Frames, "mode", st.Mode, "faults", st.Faults)
}

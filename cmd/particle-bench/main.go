// Command particle-bench drives the simulation headless with autoplay spawns
// and reports scheduler throughput.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olivierh59500/particle-bounce-go/autoplay"
	"github.com/olivierh59500/particle-bounce-go/config"
	"github.com/olivierh59500/particle-bounce-go/engine"
)

var errDone = errors.New("bench done")

type benchConfig struct {
	Frames int
	TPS    int
	Every  int
	Width  float64
	Height float64
	Report time.Duration
}

func main() {
	frames := flag.Int("frames", 3600, "frames to run")
	tps := flag.Int("tps", 0, "ticks per second, 0 runs unthrottled")
	every := flag.Int("every", 5, "spawn a batch every n frames")
	inline := flag.Bool("inline", false, "run the collision pass on the frame loop")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *inline {
		cfg.Offload = false
	}
	logger, err := config.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bc := benchConfig{
		Frames: *frames,
		TPS:    *tps,
		Every:  *every,
		Width:  float64(cfg.WindowWidth),
		Height: float64(cfg.WindowHeight),
		Report: time.Second,
	}
	st, err := run(ctx, cfg, bc, logger)
	if err != nil {
		logger.Error("bench failed", "err", err)
		os.Exit(1)
	}
	logger.Info("bench finished",
		"frames", advancedFrames(st),
		"ticks", st.Frames,
		"mode", st.Mode,
		"inline_passes", st.InlinePasses,
		"offloaded_passes", st.OffloadedPasses,
		"coalesced", st.Coalesced,
		"faults", st.Faults,
		"particles", st.Particles,
	)
}

// run ticks the scheduler until the frame budget is spent or ctx ends,
// with a reporter logging progress alongside.
func run(ctx context.Context, cfg config.Config, bc benchConfig, logger *slog.Logger) (engine.Stats, error) {
	store := engine.NewStore()
	spawner, err := engine.NewSpawner(cfg.Spawn, store, 1)
	if err != nil {
		return engine.Stats{}, err
	}

	drive := autoplay.DefaultConfig()
	drive.Every = bc.Every
	driver, err := autoplay.NewDriver(drive)
	if err != nil {
		return engine.Stats{}, err
	}

	var factory engine.OffloaderFactory
	if cfg.Offload {
		factory = engine.WorkerFactory(logger)
	}
	view := engine.ViewportFunc(func() (float64, float64) { return bc.Width, bc.Height })
	sched, err := engine.NewScheduler(ctx, engine.SchedulerConfig{
		Physics:      cfg.Physics,
		GridCellSize: cfg.GridCellSize,
		Offload:      factory,
		Logger:       logger,
	}, store, view)
	if err != nil {
		return engine.Stats{}, err
	}
	defer sched.Close()

	logger.Info("bench starting", "session", sched.Session(), "frames", bc.Frames, "offload", cfg.Offload)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()

	g.Go(func() error {
		var tick <-chan time.Time
		if bc.TPS > 0 {
			ticker := time.NewTicker(time.Second / time.Duration(bc.TPS))
			defer ticker.Stop()
			tick = ticker.C
		}
		sp := autoplay.SpawnFunc(func(x, y float64) { spawner.Spawn(x, y) })
		// Frames count ticks that advanced the simulation, coalesced ticks
		// wait on the worker
		advanced := 0
		for advanced < bc.Frames {
			if tick != nil {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-tick:
				}
			} else if err := gctx.Err(); err != nil {
				return err
			}
			before := sched.Stats().Coalesced
			sched.Tick()
			if sched.Stats().Coalesced != before {
				if tick == nil {
					runtime.Gosched()
				}
				continue
			}
			advanced++
			// Spawns join on the next advancing tick
			driver.Step(bc.Width, bc.Height, sp)
		}
		return errDone
	})

	g.Go(func() error {
		ticker := time.NewTicker(bc.Report)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st := sched.Stats()
				elapsed := time.Since(start).Seconds()
				logger.Info("progress",
					"frames", advancedFrames(st),
					"ticks", st.Frames,
					"fps", float64(advancedFrames(st))/elapsed,
					"particles", st.Particles,
					"mode", st.Mode,
					"pairs", st.LastPass.Pairs,
				)
			}
		}
	})

	err = g.Wait()
	st := sched.Stats()
	if errors.Is(err, errDone) || errors.Is(err, context.Canceled) {
		return st, nil
	}
	return st, err
}

// advancedFrames counts ticks that integrated, leaving out coalesced ones.
func advancedFrames(st engine.Stats) uint64 {
	return st.Frames - st.Coalesced
}

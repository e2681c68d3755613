package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/olivierh59500/particle-bounce-go/physics"
)

var (
	// ErrInvalidConfig is returned by NewScheduler for unusable settings.
	ErrInvalidConfig = errors.New("invalid scheduler config")
	// ErrMalformedResponse marks a worker response that does not match its request.
	ErrMalformedResponse = errors.New("malformed collision response")
)

// Mode is where the collision pass runs.
type Mode int32

const (
	// ModeOffloaded runs the pass on a background offloader.
	ModeOffloaded Mode = iota
	// ModeInline runs the pass on the frame loop.
	ModeInline
)

func (m Mode) String() string {
	switch m {
	case ModeOffloaded:
		return "offloaded"
	case ModeInline:
		return "inline"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

// Viewport reports the current drawing area. Queried once per tick.
type Viewport interface {
	Size() (width, height float64)
}

// ViewportFunc adapts a function to Viewport.
type ViewportFunc func() (width, height float64)

// Size calls f.
func (f ViewportFunc) Size() (float64, float64) {
	return f()
}

// SchedulerConfig wires a Scheduler.
type SchedulerConfig struct {
	Physics      physics.Params
	GridCellSize float64
	Offload      OffloaderFactory // nil runs inline from the start
	Logger       *slog.Logger
}

// Stats is a point-in-time copy of the scheduler counters.
type Stats struct {
	Mode            Mode
	Frames          uint64
	InlinePasses    uint64
	OffloadedPasses uint64
	Coalesced       uint64 // Ticks skipped while a pass was in flight
	Faults          uint64
	Particles       int
	LastPass        physics.PassStats
}

type counters struct {
	mode      atomic.Int32
	frames    atomic.Uint64
	inline    atomic.Uint64
	offloaded atomic.Uint64
	coalesced atomic.Uint64
	faults    atomic.Uint64
	particles atomic.Int64
	lastPass  atomic.Pointer[physics.PassStats]
}

// Scheduler drives the per-frame loop: integration, then the collision pass
// on the offloader or inline, and publishes the snapshot the renderer draws.
//
// Tick, Snapshot, Reset and Close belong to the frame loop goroutine. Stats and
// Mode may be read from anywhere.
type Scheduler struct {
	cfg      SchedulerConfig
	store    *Store
	viewport Viewport
	logger   *slog.Logger
	session  string

	ctx    context.Context
	cancel context.CancelFunc

	mode      Mode
	offloader Offloader
	pass      *physics.CollisionPass

	seq         uint64
	pending     bool
	inflightSeq uint64
	inflightIDs map[uint64]struct{}
	droppedSeq  uint64

	snapshot []physics.Particle
	closed   bool

	counters counters
}

// NewScheduler validates cfg and starts the offloader when one is configured.
// A failing offloader factory is not an error: the scheduler runs inline.
func NewScheduler(ctx context.Context, cfg SchedulerConfig, store *Store, viewport Viewport) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if viewport == nil {
		return nil, fmt.Errorf("%w: viewport is required", ErrInvalidConfig)
	}
	if cfg.GridCellSize <= 0 {
		return nil, fmt.Errorf("%w: grid cell size %v", ErrInvalidConfig, cfg.GridCellSize)
	}
	if err := cfg.Physics.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session := uuid.NewString()
	logger = logger.With("session", session)

	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		cfg:         cfg,
		store:       store,
		viewport:    viewport,
		logger:      logger,
		session:     session,
		ctx:         ctx,
		cancel:      cancel,
		mode:        ModeInline,
		pass:        physics.NewCollisionPass(),
		inflightIDs: make(map[uint64]struct{}),
	}

	if cfg.Offload != nil {
		off, err := cfg.Offload(ctx)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "collision offload unavailable, running inline", "err", err)
		case off == nil:
			logger.WarnContext(ctx, "collision offload factory returned nothing, running inline")
		default:
			s.offloader = off
			s.mode = ModeOffloaded
		}
	}
	s.counters.mode.Store(int32(s.mode))

	logger.InfoContext(ctx, "scheduler started", "mode", s.mode, "grid_cell_size", cfg.GridCellSize)
	return s, nil
}

// Tick advances the simulation by one frame. It never blocks on the offloader.
func (s *Scheduler) Tick() {
	if s.closed {
		return
	}
	s.counters.frames.Add(1)

	if s.pending {
		select {
		case resp := <-s.offloader.Results():
			s.receive(resp)
		default:
		}
	}
	if s.pending {
		s.counters.coalesced.Add(1)
		return
	}

	w, h := s.viewport.Size()
	bounds := physics.Bounds{Width: w, Height: h}

	s.store.Drain()
	src := s.store.Particles()
	next := physics.Integrate(make([]physics.Particle, 0, len(src)), src, s.cfg.Physics, bounds)
	s.store.Replace(next)

	if len(next) <= 1 {
		s.publish(next)
		return
	}

	if s.mode == ModeOffloaded {
		err := s.submit(next, bounds)
		if err == nil {
			return
		}
		// The worker may not have released the last delivered result yet
		if !errors.Is(err, ErrBusy) {
			s.degrade("submit failed", err)
		}
	}

	stats := s.pass.Run(next, s.cfg.GridCellSize, bounds)
	s.counters.inline.Add(1)
	s.counters.lastPass.Store(&stats)
	s.publish(next)
}

// Snapshot returns the particles to draw. Read-only, valid until the next Tick.
func (s *Scheduler) Snapshot() []physics.Particle {
	return s.snapshot
}

// Mode reports where the collision pass currently runs.
func (s *Scheduler) Mode() Mode {
	return Mode(s.counters.mode.Load())
}

// Session identifies this scheduler in logs.
func (s *Scheduler) Session() string {
	return s.session
}

// Stats returns the counters.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Mode:            Mode(s.counters.mode.Load()),
		Frames:          s.counters.frames.Load(),
		InlinePasses:    s.counters.inline.Load(),
		OffloadedPasses: s.counters.offloaded.Load(),
		Coalesced:       s.counters.coalesced.Load(),
		Faults:          s.counters.faults.Load(),
		Particles:       int(s.counters.particles.Load()),
	}
	if last := s.counters.lastPass.Load(); last != nil {
		st.LastPass = *last
	}
	return st
}

// Reset clears every particle. A result still in flight is discarded.
func (s *Scheduler) Reset() {
	s.store.Reset()
	s.publish(nil)
	if s.pending {
		s.droppedSeq = s.inflightSeq
	}
	s.logger.DebugContext(s.ctx, "scheduler reset")
}

// Close stops the offloader. Later ticks do nothing and no in-flight result
// is applied.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pending = false
	if s.offloader != nil {
		s.offloader.Close()
		s.offloader = nil
	}
	s.cancel()
	s.logger.Info("scheduler closed", "frames", s.counters.frames.Load())
}

func (s *Scheduler) submit(ps []physics.Particle, bounds physics.Bounds) error {
	s.seq++
	req := Request{
		Seq:            s.seq,
		Particles:      slices.Clone(ps),
		ViewportWidth:  bounds.Width,
		ViewportHeight: bounds.Height,
		GridCellSize:   s.cfg.GridCellSize,
	}
	if err := s.offloader.Submit(req); err != nil {
		return err
	}

	s.pending = true
	s.inflightSeq = req.Seq
	clear(s.inflightIDs)
	for i := range ps {
		s.inflightIDs[ps[i].ID] = struct{}{}
	}
	return nil
}

func (s *Scheduler) receive(resp Response) {
	s.pending = false
	if resp.Seq != 0 && resp.Seq <= s.droppedSeq {
		return
	}
	if err := s.validate(resp); err != nil {
		s.counters.faults.Add(1)
		s.degrade("offloaded pass failed", err)
		return
	}

	s.counters.offloaded.Add(1)
	stats := resp.Stats
	s.counters.lastPass.Store(&stats)
	s.store.Replace(resp.Particles)
	s.publish(resp.Particles)
}

func (s *Scheduler) validate(resp Response) error {
	if resp.Err != nil {
		return resp.Err
	}
	if resp.Seq != s.inflightSeq {
		return fmt.Errorf("%w: seq %d, want %d", ErrMalformedResponse, resp.Seq, s.inflightSeq)
	}
	if resp.Particles == nil || len(resp.Particles) != len(s.inflightIDs) {
		return fmt.Errorf("%w: %d particles, want %d", ErrMalformedResponse, len(resp.Particles), len(s.inflightIDs))
	}
	seen := make(map[uint64]struct{}, len(resp.Particles))
	for i := range resp.Particles {
		p := &resp.Particles[i]
		if _, ok := s.inflightIDs[p.ID]; !ok {
			return fmt.Errorf("%w: unknown particle %d", ErrMalformedResponse, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate particle %d", ErrMalformedResponse, p.ID)
		}
		seen[p.ID] = struct{}{}
		if !p.Finite() {
			return fmt.Errorf("%w: particle %d has non-finite state", ErrMalformedResponse, p.ID)
		}
	}
	return nil
}

// degrade switches to inline mode for the rest of the session.
func (s *Scheduler) degrade(reason string, err error) {
	if s.mode == ModeInline {
		return
	}
	s.mode = ModeInline
	s.counters.mode.Store(int32(ModeInline))
	s.pending = false
	if s.offloader != nil {
		s.offloader.Close()
		s.offloader = nil
	}
	s.logger.WarnContext(s.ctx, "collision offload disabled, running inline", "reason", reason, "err", err)
}

func (s *Scheduler) publish(ps []physics.Particle) {
	s.snapshot = ps
	s.counters.particles.Store(int64(len(ps)))
}

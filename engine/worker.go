package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/olivierh59500/particle-bounce-go/physics"
)

var (
	// ErrWorkerUnavailable is returned when a worker cannot be started.
	ErrWorkerUnavailable = errors.New("collision worker unavailable")
	// ErrWorkerClosed is returned by Submit after teardown.
	ErrWorkerClosed = errors.New("collision worker closed")
	// ErrBusy is returned by Submit while a request is still in flight.
	ErrBusy = errors.New("collision worker busy")
	// ErrInvalidRequest is answered for requests the pass cannot run.
	ErrInvalidRequest = errors.New("invalid collision request")
	// ErrWorkerFault is answered when a pass panics.
	ErrWorkerFault = errors.New("collision worker fault")
)

// Request carries a point-in-time copy of the frame set to the worker.
type Request struct {
	Seq            uint64
	Particles      []physics.Particle
	ViewportWidth  float64
	ViewportHeight float64
	GridCellSize   float64
}

// Response returns the corrected set for the request with the same Seq.
type Response struct {
	Seq       uint64
	Particles []physics.Particle
	Stats     physics.PassStats
	Err       error
}

//go:generate go tool mockgen -destination=./mocks/offloader_mock.go -package=mocks . Offloader

// Offloader runs collision passes away from the frame loop, one at a time.
type Offloader interface {
	// Submit hands over a request without blocking.
	Submit(req Request) error
	// Results delivers one Response per accepted request.
	Results() <-chan Response
	// Close stops the offloader without waiting for an in-flight result.
	Close()
}

// OffloaderFactory starts an offloader bound to ctx.
type OffloaderFactory func(ctx context.Context) (Offloader, error)

// Worker is an Offloader backed by a single goroutine with single-slot
// request and result channels. The request owns its particle slice; the
// worker mutates it and hands it back.
type Worker struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	requests chan Request
	results  chan Response
	done     chan struct{}

	busy atomic.Bool
	pass *physics.CollisionPass

	passFn func([]physics.Particle, float64, physics.Bounds) physics.PassStats // Test seam
}

// NewWorker starts a worker goroutine that lives until Close or ctx is done.
func NewWorker(ctx context.Context, logger *slog.Logger) (*Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerUnavailable, err)
	}
	w := newWorker(ctx, logger)
	go w.run()
	return w, nil
}

func newWorker(ctx context.Context, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Worker{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		requests: make(chan Request, 1),
		results:  make(chan Response, 1),
		done:     make(chan struct{}),
		pass:     physics.NewCollisionPass(),
	}
}

// WorkerFactory adapts NewWorker for SchedulerConfig.Offload.
func WorkerFactory(logger *slog.Logger) OffloaderFactory {
	return func(ctx context.Context) (Offloader, error) {
		w, err := NewWorker(ctx, logger)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

// Submit queues req. Only one request may be in flight.
func (w *Worker) Submit(req Request) error {
	if w.ctx.Err() != nil {
		return ErrWorkerClosed
	}
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	select {
	case w.requests <- req:
		return nil
	default:
		w.busy.Store(false)
		return ErrBusy
	}
}

// Results returns the response channel.
func (w *Worker) Results() <-chan Response {
	return w.results
}

// Close cancels the worker. Any in-flight result is dropped.
func (w *Worker) Close() {
	w.cancel()
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			w.logger.DebugContext(w.ctx, "collision worker stopped", "err", w.ctx.Err())
			return
		case req := <-w.requests:
			resp := w.process(req)
			select {
			case w.results <- resp:
				w.busy.Store(false)
			case <-w.ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) process(req Request) (resp Response) {
	resp.Seq = req.Seq
	defer func() {
		if r := recover(); r != nil {
			w.pass = physics.NewCollisionPass()
			resp.Particles = nil
			resp.Err = fmt.Errorf("%w: %v", ErrWorkerFault, r)
			w.logger.WarnContext(w.ctx, "collision pass panicked", "seq", req.Seq, "err", resp.Err)
		}
	}()

	if req.GridCellSize <= 0 || math.IsNaN(req.GridCellSize) || math.IsInf(req.GridCellSize, 0) {
		resp.Err = fmt.Errorf("%w: grid cell size %v", ErrInvalidRequest, req.GridCellSize)
		return resp
	}

	resp.Particles = req.Particles
	if len(req.Particles) <= 1 {
		return resp
	}
	bounds := physics.Bounds{Width: req.ViewportWidth, Height: req.ViewportHeight}
	if w.passFn != nil {
		resp.Stats = w.passFn(req.Particles, req.GridCellSize, bounds)
	} else {
		resp.Stats = w.pass.Run(req.Particles, req.GridCellSize, bounds)
	}
	return resp
}

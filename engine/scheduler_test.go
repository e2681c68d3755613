package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/olivierh59500/particle-bounce-go/engine"
	"github.com/olivierh59500/particle-bounce-go/engine/mocks"
	"github.com/olivierh59500/particle-bounce-go/physics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedViewport() engine.Viewport {
	return engine.ViewportFunc(func() (float64, float64) { return 800, 600 })
}

func newScheduler(t *testing.T, factory engine.OffloaderFactory) (*engine.Scheduler, *engine.Store) {
	t.Helper()
	store := engine.NewStore()
	s, err := engine.NewScheduler(context.Background(), engine.SchedulerConfig{
		Physics:      physics.DefaultParams(),
		GridCellSize: 64,
		Offload:      factory,
		Logger:       quietLogger(),
	}, store, fixedViewport())
	if err != nil {
		t.Fatalf("unexpected error creating scheduler: %v", err)
	}
	return s, store
}

func mockFactory(off engine.Offloader) engine.OffloaderFactory {
	return func(context.Context) (engine.Offloader, error) { return off, nil }
}

// enqueuePair queues two mid-air particles overlapping by half a diameter.
func enqueuePair(store *engine.Store, x float64) (uint64, uint64) {
	first := store.Reserve(2)
	store.Enqueue([]physics.Particle{
		{ID: first, X: x, Y: 100, Size: 20},
		{ID: first + 1, X: x + 10, Y: 100, Size: 20},
	})
	return first, first + 1
}

func findParticle(t *testing.T, ps []physics.Particle, id uint64) physics.Particle {
	t.Helper()
	for _, p := range ps {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("particle %d not in snapshot", id)
	return physics.Particle{}
}

func assertSeparated(t *testing.T, ps []physics.Particle, a, b uint64) {
	t.Helper()
	pa, pb := findParticle(t, ps, a), findParticle(t, ps, b)
	minDist := (pa.Size + pb.Size) / 2
	if d := math.Hypot(pb.X-pa.X, pb.Y-pa.Y); d < minDist-1e-9 {
		t.Fatalf("particles %d and %d overlap: distance %v < %v", a, b, d, minDist)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	good := engine.SchedulerConfig{Physics: physics.DefaultParams(), GridCellSize: 64, Logger: quietLogger()}

	if _, err := engine.NewScheduler(context.Background(), good, nil, fixedViewport()); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Fatalf("nil store: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := engine.NewScheduler(context.Background(), good, engine.NewStore(), nil); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Fatalf("nil viewport: expected ErrInvalidConfig, got %v", err)
	}

	bad := good
	bad.GridCellSize = 0
	if _, err := engine.NewScheduler(context.Background(), bad, engine.NewStore(), fixedViewport()); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Fatalf("zero cell size: expected ErrInvalidConfig, got %v", err)
	}

	bad = good
	bad.Physics.MaxBounces = 0
	_, err := engine.NewScheduler(context.Background(), bad, engine.NewStore(), fixedViewport())
	if !errors.Is(err, engine.ErrInvalidConfig) || !errors.Is(err, physics.ErrInvalidParams) {
		t.Fatalf("bad params: expected ErrInvalidConfig wrapping ErrInvalidParams, got %v", err)
	}
}

func TestScheduler_InlineResolvesCollisions(t *testing.T) {
	s, store := newScheduler(t, nil)
	defer s.Close()

	if s.Mode() != engine.ModeInline {
		t.Fatalf("mode = %v, want inline without a factory", s.Mode())
	}

	a, b := enqueuePair(store, 100)
	s.Tick()

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d particles, want 2", len(snap))
	}
	assertSeparated(t, snap, a, b)

	st := s.Stats()
	if st.InlinePasses != 1 || st.Frames != 1 || st.Particles != 2 || st.LastPass.Collisions != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestScheduler_SpawnVisibleFromNextFrame(t *testing.T) {
	s, store := newScheduler(t, nil)
	defer s.Close()
	sp, err := engine.NewSpawner(engine.DefaultSpawnConfig(), store, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Tick()
	sp.Spawn(400, 300)
	if len(s.Snapshot()) != 0 {
		t.Fatalf("spawn visible before the frame boundary")
	}

	s.Tick()
	if len(s.Snapshot()) != 15 {
		t.Fatalf("snapshot has %d particles after spawn, want 15", len(s.Snapshot()))
	}
}

func TestScheduler_FactoryErrorRunsInline(t *testing.T) {
	s, store := newScheduler(t, func(context.Context) (engine.Offloader, error) {
		return nil, errors.New("no threads today")
	})
	defer s.Close()

	if s.Mode() != engine.ModeInline {
		t.Fatalf("mode = %v, want inline", s.Mode())
	}
	a, b := enqueuePair(store, 200)
	s.Tick()
	assertSeparated(t, s.Snapshot(), a, b)
}

func TestScheduler_SingleParticleSkipsPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	store.Enqueue([]physics.Particle{{ID: store.Reserve(1), X: 50, Y: 50, Size: 10}})

	s.Tick()
	s.Tick()

	if len(s.Snapshot()) != 1 {
		t.Fatalf("snapshot has %d particles, want 1", len(s.Snapshot()))
	}
	if st := s.Stats(); st.InlinePasses != 0 || st.OffloadedPasses != 0 {
		t.Fatalf("no pass expected for one particle, stats %+v", st)
	}
	s.Close()
}

func TestScheduler_OffloadedAdoptsResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	ch := make(chan engine.Response, 1)
	var results <-chan engine.Response = ch

	var submitted []engine.Request
	off.EXPECT().Submit(gomock.Any()).DoAndReturn(func(req engine.Request) error {
		submitted = append(submitted, req)
		return nil
	}).Times(2)
	off.EXPECT().Results().Return(results).AnyTimes()
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	defer s.Close()
	enqueuePair(store, 100)

	s.Tick()
	if len(submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(submitted))
	}
	req := submitted[0]
	if req.ViewportWidth != 800 || req.ViewportHeight != 600 || req.GridCellSize != 64 || len(req.Particles) != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatalf("snapshot must hold the previous corrected state while pending")
	}

	corrected := slices.Clone(req.Particles)
	corrected[0].X -= 5
	corrected[1].X += 5
	ch <- engine.Response{Seq: req.Seq, Particles: corrected}

	s.Tick()
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0] != corrected[0] || snap[1] != corrected[1] {
		t.Fatalf("snapshot %+v, want adopted response %+v", snap, corrected)
	}
	if len(submitted) != 2 || submitted[1].Seq <= req.Seq {
		t.Fatalf("expected a fresh submission after adoption, got %+v", submitted)
	}
	if st := s.Stats(); st.OffloadedPasses != 1 || st.Mode != engine.ModeOffloaded {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestScheduler_CoalescesWhilePending(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	var results <-chan engine.Response = make(chan engine.Response)
	off.EXPECT().Submit(gomock.Any()).Return(nil).Times(1)
	off.EXPECT().Results().Return(results).AnyTimes()
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	enqueuePair(store, 100)

	s.Tick()
	s.Tick()
	s.Tick()

	st := s.Stats()
	if st.Frames != 3 || st.Coalesced != 2 {
		t.Fatalf("frames=%d coalesced=%d, want 3 and 2", st.Frames, st.Coalesced)
	}
	s.Close()
}

func TestScheduler_BusySubmitRunsInlineOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	var results <-chan engine.Response = make(chan engine.Response)
	gomock.InOrder(
		off.EXPECT().Submit(gomock.Any()).Return(engine.ErrBusy),
		off.EXPECT().Submit(gomock.Any()).Return(nil),
	)
	off.EXPECT().Results().Return(results).AnyTimes()
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	defer s.Close()
	a, b := enqueuePair(store, 100)

	s.Tick()
	if s.Mode() != engine.ModeOffloaded {
		t.Fatalf("mode = %v, busy worker must not disable offload", s.Mode())
	}
	if st := s.Stats(); st.InlinePasses != 1 || st.Faults != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	assertSeparated(t, s.Snapshot(), a, b)

	s.Tick()
	if s.Mode() != engine.ModeOffloaded {
		t.Fatalf("mode = %v after second submit", s.Mode())
	}
}

func TestScheduler_FallsBackInlineAfterWorkerFault(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	ch := make(chan engine.Response, 1)
	var results <-chan engine.Response = ch

	var req engine.Request
	off.EXPECT().Submit(gomock.Any()).DoAndReturn(func(r engine.Request) error {
		req = r
		return nil
	}).Times(1)
	off.EXPECT().Results().Return(results).AnyTimes()
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	defer s.Close()
	a, b := enqueuePair(store, 100)

	s.Tick()
	ch <- engine.Response{Seq: req.Seq, Err: engine.ErrWorkerFault}
	s.Tick()

	if s.Mode() != engine.ModeInline {
		t.Fatalf("mode = %v, want inline after fault", s.Mode())
	}
	if st := s.Stats(); st.Faults != 1 || st.InlinePasses != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	assertSeparated(t, s.Snapshot(), a, b)

	// Later collisions keep resolving inline
	c, d := enqueuePair(store, 500)
	for i := 0; i < 3; i++ {
		s.Tick()
	}
	assertSeparated(t, s.Snapshot(), c, d)
	if st := s.Stats(); st.InlinePasses != 4 || st.OffloadedPasses != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestScheduler_MalformedResponseDegrades(t *testing.T) {
	cases := map[string]func(req engine.Request) engine.Response{
		"missing particle": func(req engine.Request) engine.Response {
			return engine.Response{Seq: req.Seq, Particles: req.Particles[:1]}
		},
		"nil particles": func(req engine.Request) engine.Response {
			return engine.Response{Seq: req.Seq}
		},
		"unknown id": func(req engine.Request) engine.Response {
			ps := slices.Clone(req.Particles)
			ps[1].ID = 999
			return engine.Response{Seq: req.Seq, Particles: ps}
		},
		"NaN position": func(req engine.Request) engine.Response {
			ps := slices.Clone(req.Particles)
			ps[0].X = math.NaN()
			return engine.Response{Seq: req.Seq, Particles: ps}
		},
		"wrong seq": func(req engine.Request) engine.Response {
			return engine.Response{Seq: req.Seq + 1, Particles: req.Particles}
		},
	}

	for name, respond := range cases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			off := mocks.NewMockOffloader(ctrl)
			ch := make(chan engine.Response, 1)
			var results <-chan engine.Response = ch

			off.EXPECT().Submit(gomock.Any()).DoAndReturn(func(r engine.Request) error {
				ch <- respond(r)
				return nil
			}).Times(1)
			off.EXPECT().Results().Return(results).AnyTimes()
			off.EXPECT().Close().Times(1)

			s, store := newScheduler(t, mockFactory(off))
			defer s.Close()
			a, b := enqueuePair(store, 100)

			s.Tick()
			s.Tick()

			if s.Mode() != engine.ModeInline {
				t.Fatalf("mode = %v, want inline", s.Mode())
			}
			snap := s.Snapshot()
			for _, p := range snap {
				if !p.Finite() {
					t.Fatalf("malformed data reached the snapshot: %+v", p)
				}
			}
			assertSeparated(t, snap, a, b)
		})
	}
}

func TestScheduler_CloseDropsInFlightResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	ch := make(chan engine.Response, 1)
	var results <-chan engine.Response = ch

	off.EXPECT().Submit(gomock.Any()).DoAndReturn(func(r engine.Request) error {
		ch <- engine.Response{Seq: r.Seq, Particles: r.Particles}
		return nil
	}).Times(1)
	off.EXPECT().Results().Return(results).AnyTimes()
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	enqueuePair(store, 100)

	s.Tick()
	s.Close()
	s.Tick()
	s.Close()

	if len(s.Snapshot()) != 0 {
		t.Fatalf("result applied after teardown")
	}
	if st := s.Stats(); st.OffloadedPasses != 0 || st.Frames != 1 {
		t.Fatalf("unexpected stats after close %+v", st)
	}
}

func TestScheduler_ResetDiscardsInFlightResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	off := mocks.NewMockOffloader(ctrl)
	ch := make(chan engine.Response, 1)
	var results <-chan engine.Response = ch

	var req engine.Request
	off.EXPECT().Submit(gomock.Any()).DoAndReturn(func(r engine.Request) error {
		req = r
		return nil
	}).Times(1)
	off.EXPECT().Results().Return(results).AnyTimes()
	off.EXPECT().Close().Times(1)

	s, store := newScheduler(t, mockFactory(off))
	defer s.Close()
	enqueuePair(store, 100)

	s.Tick()
	s.Reset()
	ch <- engine.Response{Seq: req.Seq, Particles: req.Particles}
	s.Tick()

	if len(s.Snapshot()) != 0 {
		t.Fatalf("stale result survived reset: %+v", s.Snapshot())
	}
	if s.Mode() != engine.ModeOffloaded {
		t.Fatalf("a stale result is not a fault, mode = %v", s.Mode())
	}
}

func TestScheduler_OffloadedMatchesInline(t *testing.T) {
	inline, inStore := newScheduler(t, nil)
	defer inline.Close()
	offloaded, offStore := newScheduler(t, engine.WorkerFactory(quietLogger()))
	defer offloaded.Close()

	if offloaded.Mode() != engine.ModeOffloaded {
		t.Fatalf("mode = %v, want offloaded", offloaded.Mode())
	}

	var batch []physics.Particle
	for i := 0; i < 40; i++ {
		batch = append(batch, physics.Particle{
			ID:       uint64(i + 1),
			X:        100 + float64(i%8)*15,
			Y:        100 + float64(i/8)*15,
			Size:     20,
			Velocity: float64(i%5) - 2,
		})
	}
	inStore.Enqueue(slices.Clone(batch))
	offStore.Enqueue(slices.Clone(batch))

	inline.Tick()

	deadline := time.Now().Add(2 * time.Second)
	for offloaded.Stats().OffloadedPasses == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("offloaded pass never completed")
		}
		offloaded.Tick()
		time.Sleep(time.Millisecond)
	}

	want, got := inline.Snapshot(), offloaded.Snapshot()
	if len(want) != len(got) {
		t.Fatalf("snapshot sizes differ: inline %d, offloaded %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("slot %d differs: inline %+v, offloaded %+v", i, want[i], got[i])
		}
	}
}

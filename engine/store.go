// Package engine drives the simulation: it owns the particle store, turns
// pointer events into spawn batches and schedules the collision pass either on
// a background worker or inline on the frame loop.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/olivierh59500/particle-bounce-go/physics"
)

// Store owns the particle records of the current frame.
//
// The particle slice belongs to the frame loop. Spawn batches may be queued
// from any goroutine and only join the slice when the frame loop calls Drain.
type Store struct {
	particles []physics.Particle

	mu      sync.Mutex
	pending []physics.Particle

	lastID atomic.Uint64
}

// NewStore creates an empty store. The first reserved id is 1.
func NewStore() *Store {
	return &Store{}
}

// Reserve claims n contiguous ids and returns the first one.
func (s *Store) Reserve(n int) uint64 {
	if n <= 0 {
		return s.lastID.Load() + 1
	}
	last := s.lastID.Add(uint64(n))
	return last - uint64(n) + 1
}

// Enqueue queues a batch for the next frame boundary.
func (s *Store) Enqueue(batch []physics.Particle) {
	s.mu.Lock()
	s.pending = append(s.pending, batch...)
	s.mu.Unlock()
}

// Pending returns the number of queued particles.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Drain moves queued batches into the frame set and returns how many joined.
func (s *Store) Drain() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.particles = append(s.particles, batch...)
	return len(batch)
}

// Particles returns the frame set. Frame loop only.
func (s *Store) Particles() []physics.Particle {
	return s.particles
}

// Replace swaps in a new frame set. Frame loop only.
func (s *Store) Replace(ps []physics.Particle) {
	s.particles = ps
}

// Len returns the size of the frame set. Frame loop only.
func (s *Store) Len() int {
	return len(s.particles)
}

// Reset drops every particle, queued or live. Ids are never reissued.
func (s *Store) Reset() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.particles = nil
}

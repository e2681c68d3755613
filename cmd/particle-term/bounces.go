package main

import "github.com/olivierh59500/particle-bounce-go/physics"

// bounceTracker counts new ground bounces between frames by particle id.
type bounceTracker struct {
	last, next map[uint64]int
}

func newBounceTracker() *bounceTracker {
	return &bounceTracker{
		last: make(map[uint64]int),
		next: make(map[uint64]int),
	}
}

// Observe returns the bounces gained since the previous frame. Particles
// seen for the first time count from zero.
func (b *bounceTracker) Observe(ps []physics.Particle) int {
	fresh := 0
	clear(b.next)
	for i := range ps {
		p := &ps[i]
		if d := p.BounceCount - b.last[p.ID]; d > 0 {
			fresh += d
		}
		b.next[p.ID] = p.BounceCount
	}
	b.last, b.next = b.next, b.last
	return fresh
}

func (b *bounceTracker) Reset() {
	clear(b.last)
}

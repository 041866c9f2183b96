package circuit

import (
	"sync"
	"time"
)

// State is a sliding-window breaker for one upstream service. It opens for
// Cooldown once the failure ratio over the last WindowSize calls reaches
// Threshold, provided at least MinSamples calls were seen.
type State struct {
	mu        sync.Mutex
	samples   []bool
	openUntil time.Time

	WindowSize int
	MinSamples int
	Threshold  float64
	Cooldown   time.Duration

	now func() time.Time
}

func (c *State) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *State) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.clock().Before(c.openUntil)
}

func (c *State) Record(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, ok)
	if len(c.samples) > c.WindowSize {
		c.samples = c.samples[len(c.samples)-c.WindowSize:]
	}
	if len(c.samples) < c.MinSamples {
		return
	}
	fail := 0
	for _, s := range c.samples {
		if !s {
			fail++
		}
	}
	if float64(fail)/float64(len(c.samples)) >= c.Threshold {
		c.openUntil = c.clock().Add(c.Cooldown)
		// the next window starts clean once the cooldown expires
		c.samples = c.samples[:0]
	}
}

// Set hands out one State per upstream name, created on first use.
type Set struct {
	mu       sync.Mutex
	circuits map[string]*State

	window    int
	min       int
	threshold float64
	cooldown  time.Duration
	now       func() time.Time
}

func NewSet(window, minSamples int, threshold float64, cooldown time.Duration) *Set {
	return &Set{
		circuits:  map[string]*State{},
		window:    window,
		min:       minSamples,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

func (s *Set) For(name string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.circuits[name]; ok {
		return c
	}
	c := &State{WindowSize: s.window, MinSamples: s.min, Threshold: s.threshold, Cooldown: s.cooldown, now: s.now}
	s.circuits[name] = c
	return c
}

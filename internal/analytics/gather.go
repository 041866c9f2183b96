package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Policy records which fallback, if any, produced a sub-query's value.
type Policy string

const (
	PolicyNone      Policy = ""
	PolicyEmpty     Policy = "empty"
	PolicySynthetic Policy = "synthetic"
)

// Query is one read-only aggregate sub-query together with its fallbacks.
//
// Empty builds the explicit zero/empty dataset (genuine empty state). Degraded
// builds plausible synthetic data for an infrastructure failure; when nil, a
// failure also resolves to Empty. IsEmpty decides whether a successful result
// counts as "no data"; when nil only failures are substituted.
type Query[T any] struct {
	Name     string
	Run      func(ctx context.Context) (T, error)
	IsEmpty  func(T) bool
	Empty    func() T
	Degraded func() T
}

// Outcome describes how a single sub-query settled.
type Outcome struct {
	Name     string
	Policy   Policy
	Err      error
	Duration time.Duration
}

// Step is a bound query ready to run inside Gather.
type Step interface {
	Name() string
	run(ctx context.Context) Outcome
}

type bound[T any] struct {
	dst *T
	q   Query[T]
}

// Bind ties a query to the destination that receives its real or fallback value.
func Bind[T any](dst *T, q Query[T]) Step {
	return bound[T]{dst: dst, q: q}
}

func (b bound[T]) Name() string { return b.q.Name }

func (b bound[T]) run(ctx context.Context) (out Outcome) {
	start := time.Now()
	out.Name = b.q.Name

	v, err := b.call(ctx)
	switch {
	case err != nil:
		out.Err = err
		if b.q.Degraded != nil {
			v = b.q.Degraded()
			out.Policy = PolicySynthetic
		} else {
			v = b.empty()
			out.Policy = PolicyEmpty
		}
	case b.q.IsEmpty != nil && b.q.IsEmpty(v):
		v = b.empty()
		out.Policy = PolicyEmpty
	}
	*b.dst = v
	out.Duration = time.Since(start)
	return out
}

func (b bound[T]) call(ctx context.Context) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", b.q.Name, r)
		}
	}()
	return b.q.Run(ctx)
}

func (b bound[T]) empty() T {
	if b.q.Empty == nil {
		var zero T
		return zero
	}
	return b.q.Empty()
}

// Observer is called once per settled sub-query, from the goroutine that ran it.
type Observer func(Outcome)

// Report summarises a Gather call.
type Report struct {
	Outcomes []Outcome
}

// Failed lists the sub-queries that returned an error.
func (r Report) Failed() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			names = append(names, o.Name)
		}
	}
	return names
}

// Gather runs every step concurrently and waits until all of them settle.
// A failing step never affects its siblings; its destination receives the
// fallback value instead. Outcomes are reported in step order.
func Gather(ctx context.Context, observe Observer, steps ...Step) Report {
	outcomes := make([]Outcome, len(steps))
	var wg sync.WaitGroup
	wg.Add(len(steps))
	for i, s := range steps {
		go func(i int, s Step) {
			defer wg.Done()
			o := s.run(ctx)
			if observe != nil {
				observe(o)
			}
			outcomes[i] = o
		}(i, s)
	}
	wg.Wait()
	return Report{Outcomes: outcomes}
}

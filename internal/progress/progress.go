// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress approximates progress for a single long-running request
// that reports none of its own. A Simulator walks through labeled phases,
// creeping between milestones on a timer, and never reaches 100%: only the
// caller may declare completion once the real response arrives.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/ojamed/pkg/types"
)

// DefaultPhases are the milestones shown during a conversion.
var DefaultPhases = []types.Progress{
	{Percent: 10, Label: "Extracting text from slides"},
	{Percent: 30, Label: "Uploading and processing your presentation"},
	{Percent: 55, Label: "Generating flashcards"},
	{Percent: 75, Label: "Detecting image regions"},
	{Percent: 90, Label: "Packaging your deck"},
}

const (
	defaultInterval = 1500 * time.Millisecond
	defaultStep     = 2
	defaultCeiling  = 95
)

// Simulator produces a non-decreasing sequence of progress updates.
type Simulator struct {
	// Phases are the labeled milestones, in ascending order.
	Phases []types.Progress

	// Interval is the time between updates.
	Interval time.Duration

	// Step is the largest increment applied per tick between milestones.
	Step int

	// Ceiling caps the percentage. Values of 100 or more are treated as 99.
	Ceiling int
}

// New returns a Simulator with the default phases and timing.
func New() *Simulator {
	return &Simulator{
		Phases:   DefaultPhases,
		Interval: defaultInterval,
		Step:     defaultStep,
		Ceiling:  defaultCeiling,
	}
}

// Handle controls a running simulation.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the simulation and waits for its goroutine to exit. After
// Cancel returns, emit is never called again. Cancel is safe to call more
// than once. Callers must not hold any lock that emit acquires.
func (h *Handle) Cancel() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the simulation has stopped, either because it reached
// the ceiling or because it was cancelled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start emits the first phase immediately and then advances every Interval
// until the ceiling is reached or the context or handle is cancelled. emit
// is called from a single goroutine, in order.
func (s *Simulator) Start(ctx context.Context, emit func(types.Progress)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	phases := s.milestones()
	go func() {
		defer close(h.done)
		if emit == nil || len(phases) == 0 {
			return
		}
		s.run(ctx, phases, emit)
	}()
	return h
}

func (s *Simulator) run(ctx context.Context, phases []types.Progress, emit func(types.Progress)) {
	ceiling := s.ceiling()
	step := s.Step
	if step <= 0 {
		step = defaultStep
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	cur := phases[0]
	next := 1
	if ctx.Err() != nil {
		return
	}
	emit(cur)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		switch {
		case next < len(phases) && cur.Percent+step >= phases[next].Percent:
			cur = phases[next]
			next++
		case cur.Percent < ceiling:
			cur.Percent = min(cur.Percent+step, ceiling)
			if next < len(phases) {
				cur.Percent = min(cur.Percent, phases[next].Percent)
			}
		default:
			return
		}
		emit(cur)
	}
}

// milestones returns the phases clamped to the ceiling and made monotonic.
func (s *Simulator) milestones() []types.Progress {
	ceiling := s.ceiling()
	out := make([]types.Progress, 0, len(s.Phases))
	floor := 0
	for _, p := range s.Phases {
		pct := max(min(p.Percent, ceiling), floor)
		floor = pct
		out = append(out, types.Progress{Percent: pct, Label: p.Label})
	}
	return out
}

func (s *Simulator) ceiling() int {
	switch {
	case s.Ceiling <= 0:
		return defaultCeiling
	case s.Ceiling >= 100:
		return 99
	}
	return s.Ceiling
}

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/MRamiBalles/lockdown/internal/platform/config"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

func TestLoopTicksAndRunsCommands(t *testing.T) {
	s := NewSession(config.DefaultTuning(), logger.Discard())
	m := metrics.NewCollector()
	loop := NewLoop(s, 200, 8, m, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go loop.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		var elapsed float64
		if err := loop.Query(ctx, func(s *Session) { elapsed = s.Elapsed() }); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if elapsed > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the loop to advance the clock")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var paused bool
	loop.Do(func(s *Session) { s.Pause() })
	if err := loop.Query(ctx, func(s *Session) { paused = s.Paused() }); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !paused {
		t.Fatalf("expected commands to run in order")
	}

	loop.Stop()
	<-loop.Done()
	if loop.Do(func(*Session) {}) {
		t.Fatalf("expected Do to refuse after stop")
	}
	if err := loop.Query(ctx, func(*Session) {}); err != ErrLoopStopped {
		t.Fatalf("expected ErrLoopStopped got %v", err)
	}
	if m.TickCount == 0 {
		t.Fatalf("expected ticks recorded")
	}
}

func TestDoDropsWhenSaturated(t *testing.T) {
	s := NewSession(config.DefaultTuning(), logger.Discard())
	loop := NewLoop(s, 30, 1, nil, logger.Discard())

	if !loop.Do(func(*Session) {}) {
		t.Fatalf("expected first command queued")
	}
	if loop.Do(func(*Session) {}) {
		t.Fatalf("expected second command dropped with a full queue")
	}
}

func TestRestartReplacesFinishedSession(t *testing.T) {
	first := NewSession(config.DefaultTuning(), logger.Discard())
	loop := NewLoop(first, 30, 8, nil, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go loop.Start(ctx)
	defer loop.Stop()

	restart := func() (*Session, error) {
		type result struct {
			s   *Session
			err error
		}
		ch := make(chan result, 1)
		if !loop.Restart(func(s *Session, err error) { ch <- result{s, err} }) {
			t.Fatalf("expected restart to be queued")
		}
		select {
		case r := <-ch:
			return r.s, r.err
		case <-ctx.Done():
			t.Fatalf("restart never answered")
		}
		return nil, nil
	}

	if _, err := restart(); err != ErrNoFactory {
		t.Fatalf("expected ErrNoFactory got %v", err)
	}

	// The factory is read on the loop goroutine, so install it there.
	if err := loop.Query(ctx, func(*Session) {
		loop.SetFactory(func() (*Session, error) {
			return NewSession(config.DefaultTuning(), logger.Discard()), nil
		})
	}); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	s, err := restart()
	if err != ErrSessionActive || s != first {
		t.Fatalf("expected ErrSessionActive on a running session, got %v", err)
	}

	if err := loop.Query(ctx, func(s *Session) { s.Tick(5000) }); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	s, err = restart()
	if err != nil {
		t.Fatalf("expected restart after the outcome, got %v", err)
	}
	if s == first || s.ID() == first.ID() || s.Outcome() != "" {
		t.Fatalf("expected a fresh session, got %s outcome %q", s.ID(), s.Outcome())
	}

	var current string
	if err := loop.Query(ctx, func(s *Session) { current = s.ID() }); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if current != s.ID() {
		t.Fatalf("expected the loop to drive the new session, got %s", current)
	}
}

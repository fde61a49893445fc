// Package engine contains the lockdown session and the loop that drives it.
//
// A Session is single-threaded: every mutation happens on the goroutine that
// owns it. Listeners hear about changes when the session drains its event log.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

var (
	// ErrLoopStopped is returned by Query once the loop has exited.
	ErrLoopStopped = errors.New("loop stopped")
	// ErrCommandDropped is returned by Query when the command queue is saturated.
	ErrCommandDropped = errors.New("command dropped")
	// ErrNoFactory is returned by Restart when the loop cannot build sessions.
	ErrNoFactory = errors.New("no session factory")
	// ErrSessionActive is returned by Restart before an outcome is selected.
	ErrSessionActive = apperrors.New(apperrors.CodeSessionActive, "session still running")
)

// SessionFactory builds the session that replaces a finished one.
type SessionFactory func() (*Session, error)

// Command runs on the loop goroutine with exclusive access to the session.
type Command func(*Session)

// Loop is the real-time host driver. It owns the session's goroutine: the session
// is ticked at a fixed frame rate and every other goroutine reaches it through Do.
type Loop struct {
	session  *Session
	factory  SessionFactory
	logger   *logger.Logger
	metrics  *metrics.Collector
	interval time.Duration
	commands chan Command
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop ticking s frameRate times per second with a command
// queue of buffer entries.
func NewLoop(s *Session, frameRate, buffer int, m *metrics.Collector, log *logger.Logger) *Loop {
	if frameRate < 1 {
		frameRate = 30
	}
	if buffer < 1 {
		buffer = 16
	}
	return &Loop{
		session:  s,
		logger:   log,
		metrics:  m,
		interval: time.Second / time.Duration(frameRate),
		commands: make(chan Command, buffer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetFactory enables Restart. Call before Start.
func (l *Loop) SetFactory(f SessionFactory) {
	l.factory = f
}

// Start runs the loop until ctx is cancelled or Stop is called. Call in a goroutine.
func (l *Loop) Start(ctx context.Context) {
	defer close(l.done)
	l.logger.Info("session loop started", "interval", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("session loop stopped by context")
			return
		case <-l.stopChan:
			l.logger.Info("session loop stopped manually")
			return
		case cmd := <-l.commands:
			cmd(l.session)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			start := time.Now()
			l.session.Tick(dt)
			l.metrics.RecordTick(time.Since(start))
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}

// Done is closed once Start has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Do queues cmd for the loop goroutine. It never blocks: when the queue is
// saturated or the loop has stopped the command is dropped and Do returns false.
func (l *Loop) Do(cmd Command) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.commands <- cmd:
		return true
	default:
		l.logger.Warn("command dropped, queue saturated")
		return false
	}
}

// Query runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Query(ctx context.Context, fn Command) error {
	finished := make(chan struct{})
	queued := l.Do(func(s *Session) {
		defer close(finished)
		fn(s)
	})
	if !queued {
		select {
		case <-l.done:
			return ErrLoopStopped
		default:
			return ErrCommandDropped
		}
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restart swaps a finished session for a fresh one from the factory. It runs on
// the loop goroutine and calls respond there with the session now being driven.
// Returns false when the command could not be queued.
func (l *Loop) Restart(respond func(*Session, error)) bool {
	return l.Do(func(s *Session) {
		switch {
		case l.factory == nil:
			respond(s, ErrNoFactory)
		case s.Outcome() == "":
			respond(s, ErrSessionActive)
		default:
			next, err := l.factory()
			if err != nil {
				l.logger.Error("session restart failed", "error", err)
				respond(s, err)
				return
			}
			l.logger.Info("session restarted", "previous", s.ID(), "session", next.ID())
			l.session = next
			respond(next, nil)
		}
	})
}

package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State of the scheduler, exposed for the status endpoint and tests.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateSuspended State = "suspended"
)

// PollFunc runs one full refresh cycle.
type PollFunc func(ctx context.Context) error

// Scheduler drives the periodic price refresh. It owns its timer with
// an explicit Start/Stop lifecycle instead of ambient global state:
// backgrounding the app suspends execution (the timer keeps ticking but
// fires are skipped), foregrounding catches up immediately when at
// least one interval has elapsed since the last successful poll.
type Scheduler struct {
	Poll         PollFunc
	Online       func() bool // nil means always online
	CycleTimeout time.Duration
	Logger       *slog.Logger

	mu        sync.Mutex
	running   bool
	suspended bool
	polling   bool
	lastPoll  time.Time
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func (s *Scheduler) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Scheduler) cycleTimeout() time.Duration {
	if s.CycleTimeout > 0 {
		return s.CycleTimeout
	}
	return 2 * time.Minute
}

// Start arms the recurring timer and performs one immediate poll.
// Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.interval = interval
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.log().Info("poll scheduler started", "interval", interval)

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.fire("start")
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.fire("timer")
			}
		}
	}()
}

// Stop tears the timer down deterministically: when it returns, no
// further scheduled work will execute. An in-flight cycle is allowed to
// complete (Stop waits for it) but does not re-arm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	s.log().Info("poll scheduler stopped")
}

// EnterBackground suspends execution. The timer is not cancelled; the
// next fire while suspended is skipped with a log.
func (s *Scheduler) EnterBackground() {
	s.mu.Lock()
	s.suspended = true
	s.mu.Unlock()
	s.log().Info("poll scheduler suspended")
}

// EnterForeground resumes execution. If at least one interval elapsed
// since the last successful poll, a catch-up poll runs immediately
// instead of waiting for the next tick.
func (s *Scheduler) EnterForeground() {
	s.mu.Lock()
	s.suspended = false
	catchUp := s.running && time.Since(s.lastPoll) >= s.interval
	s.mu.Unlock()

	s.log().Info("poll scheduler resumed", "catch_up", catchUp)
	if catchUp {
		go s.fire("resume")
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.polling:
		return StatePolling
	case s.suspended:
		return StateSuspended
	default:
		return StateIdle
	}
}

func (s *Scheduler) LastPoll() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll
}

// fire runs one cycle if the scheduler may poll right now. Cycles never
// overlap: a trigger arriving while one runs is dropped, which also
// keeps history timestamps non-decreasing per market key.
func (s *Scheduler) fire(trigger string) {
	s.mu.Lock()
	switch {
	case !s.running:
		s.mu.Unlock()
		return
	case s.suspended:
		s.mu.Unlock()
		s.log().Info("skipping poll while suspended", "trigger", trigger)
		return
	case s.polling:
		s.mu.Unlock()
		s.log().Info("skipping poll, cycle already running", "trigger", trigger)
		return
	case s.Online != nil && !s.Online():
		s.mu.Unlock()
		s.log().Info("skipping poll, offline", "trigger", trigger)
		return
	}
	s.polling = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout())
	err := s.Poll(ctx)
	cancel()

	s.mu.Lock()
	s.polling = false
	if err == nil {
		s.lastPoll = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		// Background trigger: swallowed here, state unchanged.
		s.log().Warn("poll cycle failed", "trigger", trigger, "err", err)
	}
}

package sync

import (
	"context"
	"time"
)

// Start launches the interval scheduler. Idempotent; a second call while
// running is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.stop)

	s.logger.Info("background sync service started", "interval", s.cfg.Interval())
}

// Stop shuts the scheduler down. Idempotent; waits for the loop and any
// in-flight fleet run to finish before returning.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("background sync service stopped")
}

// loop fires the fleet sync on every tick.
//
// Two guards apply per firing: a tick that sat undelivered longer than the
// misfire grace is dropped rather than run late, and a tick that arrives
// while a run is still active is skipped rather than queued.
func (s *Service) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case tick := <-ticker.C:
			s.handleTick(tick)
		}
	}
}

// handleTick applies the misfire guard to one firing: a tick that sat
// undelivered past the grace is dropped, a fresh one starts a fleet pass.
func (s *Service) handleTick(tick time.Time) {
	if late := time.Since(tick); late > s.cfg.MisfireGrace() {
		s.logger.Warn("dropping late firing", "late", late)
		return
	}
	s.runOnce()
}

// runOnce starts one fleet pass unless one is already in flight.
func (s *Service) runOnce() {
	if !s.inFlight.TryLock() {
		s.logger.Debug("fleet sync already running, skipping firing")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Unlock()
		s.SyncAllDueUsers(context.Background())
	}()
}

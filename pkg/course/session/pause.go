package session

import "time"

// RequestPause opens (or extends) the narration pause window. Concurrent
// requests only ever push PauseUntil forward, never shorten it.
func (s *Store) RequestPause(duration time.Duration, reason string) PauseWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.now().Add(duration)
	s.pause.IsPaused = true
	if until.After(s.pause.PauseUntil) {
		s.pause.PauseUntil = until
	}
	s.logger.Info("SessionStore", "pause requested", map[string]interface{}{
		"session_id":  s.sessionID,
		"duration_ms": duration.Milliseconds(),
		"reason":      reason,
		"pause_until": s.pause.PauseUntil,
	})
	s.persistLocked()
	return s.pause
}

// ForceResume clears the pause window unconditionally (manual override).
func (s *Store) ForceResume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pause = PauseWindow{}
	s.persistLocked()
}

// ExpirePause clears the window once current time passes PauseUntil. Expiry
// is not event-driven: the reconciliation loop calls this every tick.
// Returns true when the window was cleared by this call.
func (s *Store) ExpirePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pause.IsPaused || s.now().Before(s.pause.PauseUntil) {
		return false
	}
	s.pause = PauseWindow{}
	s.persistLocked()
	return true
}

// PauseState returns the current window.
func (s *Store) PauseState() PauseWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pause
}

package models

import (
	"errors"
	"time"
)

// Phases is the fixed workflow order every session moves through.
var Phases = []string{"research", "discovery", "planning", "implementation", "reflection"}

var (
	ErrSessionTerminal  = errors.New("session is completed or expired")
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionNotPaused = errors.New("session is not paused")
)

func IsValidPhase(phase string) bool {
	for _, p := range Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// NextPhase returns the phase after current in the fixed order. The second
// return is false when current is the last phase. An unknown current phase
// falls back to the first phase rather than erroring.
func NextPhase(current string) (string, bool) {
	for i, p := range Phases {
		if p == current {
			if i == len(Phases)-1 {
				return "", false
			}
			return Phases[i+1], true
		}
	}
	return Phases[0], true
}

func (s *Session) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionExpired
}

// CurrentPhaseElapsed reports seconds spent in the current phase, including
// time banked across pause/resume cycles.
func (s *Session) CurrentPhaseElapsed(now time.Time) int {
	elapsed := s.PhaseElapsedSeconds
	if s.Status == SessionActive {
		if live := int(now.Sub(s.PhaseStartTime).Seconds()); live > 0 {
			elapsed += live
		}
	}
	return elapsed
}

// TotalElapsed reports seconds across all phases including the current one.
func (s *Session) TotalElapsed(now time.Time) int {
	return s.TotalElapsedSeconds + s.CurrentPhaseElapsed(now)
}

// PhaseLimitReached is advisory only. Hitting a limit never forces a
// transition; a human decides when to progress.
func (s *Session) PhaseLimitReached(now time.Time) bool {
	limit, ok := s.PhaseTimeLimits[s.CurrentPhase]
	if !ok || limit <= 0 {
		return false
	}
	return s.CurrentPhaseElapsed(now) >= limit
}

// Progress closes out the current phase and moves to explicitNext, or to the
// next phase in order when explicitNext is empty. Advancing past the last
// phase marks the session completed and leaves CurrentPhase unchanged. The
// returned history row records the phase just finished and its duration;
// the caller must persist it atomically with the session update.
func (s *Session) Progress(explicitNext string, now time.Time) (SessionPhaseHistory, bool, error) {
	if s.IsTerminal() {
		return SessionPhaseHistory{}, false, ErrSessionTerminal
	}

	duration := s.CurrentPhaseElapsed(now)
	entry := SessionPhaseHistory{
		SessionID:       s.ID,
		PhaseName:       s.CurrentPhase,
		DurationSeconds: duration,
	}

	next := explicitNext
	if next != "" && !IsValidPhase(next) {
		next = Phases[0]
	}
	completed := false
	if next == "" {
		var ok bool
		next, ok = NextPhase(s.CurrentPhase)
		if !ok {
			completed = true
		}
	}

	s.TotalElapsedSeconds += duration
	s.PhaseElapsedSeconds = 0
	if completed {
		s.Status = SessionCompleted
	} else {
		s.CurrentPhase = next
		s.PhaseStartTime = now
	}

	return entry, completed, nil
}

// Pause banks the elapsed time of the current phase so the display can stop
// counting without losing what was already spent.
func (s *Session) Pause(now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionTerminal
	}
	if s.Status != SessionActive {
		return ErrSessionNotActive
	}
	if live := int(now.Sub(s.PhaseStartTime).Seconds()); live > 0 {
		s.PhaseElapsedSeconds += live
	}
	s.Status = SessionPaused
	return nil
}

// Resume restarts the phase clock from now; banked time is preserved.
func (s *Session) Resume(now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionTerminal
	}
	if s.Status != SessionPaused {
		return ErrSessionNotPaused
	}
	s.Status = SessionActive
	s.PhaseStartTime = now
	return nil
}

// Expire flips the session to expired when past its deadline. Completed
// sessions are left alone. Returns true when the status changed.
func (s *Session) Expire(now time.Time) bool {
	if s.Status == SessionCompleted || s.Status == SessionExpired {
		return false
	}
	if !now.After(s.ExpiresAt) {
		return false
	}
	s.Status = SessionExpired
	return true
}

// AppendConversation adds an entry with a server-side timestamp. Entries
// whose RequestID already appears in the history are dropped (retry dedup);
// the return reports whether the entry was appended.
func (s *Session) AppendConversation(entry ConversationEntry, now time.Time) (bool, error) {
	if s.IsTerminal() {
		return false, ErrSessionTerminal
	}
	if entry.RequestID != "" {
		for _, e := range s.ConversationHistory {
			if e.RequestID == entry.RequestID {
				return false, nil
			}
		}
	}
	entry.Timestamp = now
	s.ConversationHistory = append(s.ConversationHistory, entry)
	return true, nil
}

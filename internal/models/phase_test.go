package models

import (
	"testing"
	"time"
)

func newTestSession(start time.Time) *Session {
	return &Session{
		SessionCode:    "ABC123",
		CurrentPhase:   Phases[0],
		Status:         SessionActive,
		PhaseStartTime: start,
		PhaseTimeLimits: map[string]int{
			"research": 300,
		},
		ExpiresAt: start.Add(24 * time.Hour),
	}
}

func TestNextPhase(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		expected string
		ok       bool
	}{
		{"research to discovery", "research", "discovery", true},
		{"discovery to planning", "discovery", "planning", true},
		{"planning to implementation", "planning", "implementation", true},
		{"implementation to reflection", "implementation", "reflection", true},
		{"reflection is last", "reflection", "", false},
		{"unknown falls back to first", "bogus", "research", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, ok := NextPhase(tc.current)
			if next != tc.expected || ok != tc.ok {
				t.Errorf("NextPhase(%q) = (%q, %v), want (%q, %v)", tc.current, next, ok, tc.expected, tc.ok)
			}
		})
	}
}

func TestProgress_FullRun(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newTestSession(start)

	now := start
	var history []SessionPhaseHistory
	for i := 0; i < len(Phases); i++ {
		now = now.Add(90 * time.Second)
		entry, completed, err := s.Progress("", now)
		if err != nil {
			t.Fatalf("progress %d: unexpected error: %v", i+1, err)
		}
		history = append(history, entry)

		wantCompleted := i == len(Phases)-1
		if completed != wantCompleted {
			t.Errorf("progress %d: completed = %v, want %v", i+1, completed, wantCompleted)
		}
	}

	if s.Status != SessionCompleted {
		t.Errorf("expected status %q after final progress, got %q", SessionCompleted, s.Status)
	}
	if s.CurrentPhase != "reflection" {
		t.Errorf("completion must leave current phase unchanged, got %q", s.CurrentPhase)
	}
	if len(history) != 5 {
		t.Fatalf("expected 5 history entries, got %d", len(history))
	}
	for i, h := range history {
		if h.PhaseName != Phases[i] {
			t.Errorf("history %d: phase = %q, want %q", i, h.PhaseName, Phases[i])
		}
		if h.DurationSeconds < 0 {
			t.Errorf("history %d: negative duration %d", i, h.DurationSeconds)
		}
	}
	if s.TotalElapsedSeconds != 5*90 {
		t.Errorf("total elapsed = %d, want %d", s.TotalElapsedSeconds, 5*90)
	}
}

func TestProgress_ExplicitPhase(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)

	_, completed, err := s.Progress("implementation", start.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed {
		t.Error("explicit jump must not complete the session")
	}
	if s.CurrentPhase != "implementation" {
		t.Errorf("current phase = %q, want implementation", s.CurrentPhase)
	}
}

func TestProgress_UnknownExplicitPhaseFallsBack(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)
	s.CurrentPhase = "planning"

	_, _, err := s.Progress("warmup", start.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CurrentPhase != "research" {
		t.Errorf("unknown phase should fall back to research, got %q", s.CurrentPhase)
	}
}

func TestProgress_TerminalIsNoOp(t *testing.T) {
	for _, status := range []string{SessionCompleted, SessionExpired} {
		t.Run(status, func(t *testing.T) {
			start := time.Now()
			s := newTestSession(start)
			s.Status = status
			s.CurrentPhase = "planning"
			before := *s

			_, _, err := s.Progress("", start.Add(time.Minute))
			if err != ErrSessionTerminal {
				t.Fatalf("expected ErrSessionTerminal, got %v", err)
			}
			if s.CurrentPhase != before.CurrentPhase || s.Status != before.Status ||
				s.TotalElapsedSeconds != before.TotalElapsedSeconds {
				t.Error("terminal progress must not change session state")
			}
		})
	}
}

func TestPauseResume_Accounting(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newTestSession(start)

	// 2 minutes of work, then a 10-minute pause, then 1 more minute.
	pauseAt := start.Add(2 * time.Minute)
	if err := s.Pause(pauseAt); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if s.PhaseElapsedSeconds != 120 {
		t.Errorf("banked elapsed = %d, want 120", s.PhaseElapsedSeconds)
	}
	if got := s.CurrentPhaseElapsed(pauseAt.Add(10 * time.Minute)); got != 120 {
		t.Errorf("elapsed while paused = %d, want 120 (clock must stop)", got)
	}

	resumeAt := pauseAt.Add(10 * time.Minute)
	if err := s.Resume(resumeAt); err != nil {
		t.Fatalf("resume: %v", err)
	}

	progressAt := resumeAt.Add(1 * time.Minute)
	entry, _, err := s.Progress("", progressAt)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}

	// Wall clock is 13 minutes; the paused 10 must not count.
	if entry.DurationSeconds != 180 {
		t.Errorf("phase duration = %d, want 180", entry.DurationSeconds)
	}
	if s.TotalElapsedSeconds != 180 {
		t.Errorf("total elapsed = %d, want 180", s.TotalElapsedSeconds)
	}
}

func TestPause_InvalidFromNonActive(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)
	s.Status = SessionPaused

	if err := s.Pause(start); err != ErrSessionNotActive {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestResume_InvalidFromActive(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)

	if err := s.Resume(start); err != ErrSessionNotPaused {
		t.Errorf("expected ErrSessionNotPaused, got %v", err)
	}
}

func TestExpire(t *testing.T) {
	start := time.Now()

	t.Run("past deadline", func(t *testing.T) {
		s := newTestSession(start)
		if !s.Expire(s.ExpiresAt.Add(time.Second)) {
			t.Fatal("expected expiry to apply")
		}
		if s.Status != SessionExpired {
			t.Errorf("status = %q, want expired", s.Status)
		}
	})

	t.Run("before deadline", func(t *testing.T) {
		s := newTestSession(start)
		if s.Expire(s.ExpiresAt.Add(-time.Second)) {
			t.Error("expiry must not apply before the deadline")
		}
	})

	t.Run("completed is exempt", func(t *testing.T) {
		s := newTestSession(start)
		s.Status = SessionCompleted
		if s.Expire(s.ExpiresAt.Add(time.Hour)) {
			t.Error("completed sessions must not expire")
		}
	})
}

func TestAppendConversation(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)

	entry := ConversationEntry{Role: "user", Content: "hello", RequestID: "req-1"}
	added, err := s.AppendConversation(entry, start)
	if err != nil || !added {
		t.Fatalf("append = (%v, %v), want (true, nil)", added, err)
	}
	if len(s.ConversationHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(s.ConversationHistory))
	}
	if s.ConversationHistory[0].Timestamp.IsZero() {
		t.Error("append must stamp the entry timestamp")
	}

	// Same request id is a retry, not a new entry.
	added, err = s.AppendConversation(entry, start.Add(time.Second))
	if err != nil {
		t.Fatalf("duplicate append errored: %v", err)
	}
	if added {
		t.Error("duplicate request_id must be dropped")
	}
	if len(s.ConversationHistory) != 1 {
		t.Errorf("history length = %d after duplicate, want 1", len(s.ConversationHistory))
	}
}

func TestAppendConversation_TerminalRejected(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)
	s.Status = SessionExpired

	if _, err := s.AppendConversation(ConversationEntry{Role: "user", Content: "hi"}, start); err != ErrSessionTerminal {
		t.Errorf("expected ErrSessionTerminal, got %v", err)
	}
}

func TestPhaseLimitReached_Advisory(t *testing.T) {
	start := time.Now()
	s := newTestSession(start)

	if s.PhaseLimitReached(start.Add(299 * time.Second)) {
		t.Error("limit reported before 300s")
	}
	if !s.PhaseLimitReached(start.Add(301 * time.Second)) {
		t.Error("limit not reported after 300s")
	}

	// Reaching the limit must not have advanced anything.
	if s.CurrentPhase != "research" || s.Status != SessionActive {
		t.Error("limit check must not mutate the session")
	}
}

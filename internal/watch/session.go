package watch

import (
	"strings"
	"time"
)

// SessionState is the per-session scratch a watcher keeps in memory: last
// activity, whether it is mid-conversation ("generating"), and whether any
// token-usage metadata was observed.
type SessionState struct {
	SessionID      string
	ProjectContext string
	LastActivity   time.Time
	Generating     bool
	SawTokenUsage  bool
}

// Touch records a new event for this session, marking it active and noting
// any usage_* metadata key as evidence the session "finished naturally".
func (s *SessionState) Touch(meta map[string]interface{}) {
	s.LastActivity = time.Now()
	s.Generating = true
	for k := range meta {
		if strings.HasPrefix(k, "usage_") {
			s.SawTokenUsage = true
			break
		}
	}
}

// SilenceElapsed reports whether this session has been idle longer than
// window since its last activity while still marked generating.
func (s *SessionState) SilenceElapsed(window time.Duration) bool {
	return s.Generating && time.Since(s.LastActivity) > window
}

// EndSession resets generating/usage state for the next session in the same
// file and reports whether the ending session was interrupted (no
// token-usage metadata observed — it did not finish naturally).
func (s *SessionState) EndSession() (interrupted bool) {
	interrupted = !s.SawTokenUsage
	s.Generating = false
	s.SawTokenUsage = false
	return interrupted
}

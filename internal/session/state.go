package session

import (
	"fmt"
	"time"
)

// AllowedSizes are the session lengths a player may choose from.
var AllowedSizes = []int{5, 10, 15, 20}

// ValidSize reports whether n is one of AllowedSizes.
func ValidSize(n int) bool {
	for _, s := range AllowedSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Phase is the current state-machine state of a session.
type Phase int

const (
	PhaseIdle           Phase = iota // Waiting for a mode and a theme selection
	PhaseThemeSelected               // Selection accepted, waiting for the backend start ack
	PhaseInProgress                  // Between questions
	PhaseAwaitingAnswer              // A question is displayed and answers are enabled
	PhaseFinished                    // Finalized; terminal until Reset
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseThemeSelected:
		return "theme-selected"
	case PhaseInProgress:
		return "in-progress"
	case PhaseAwaitingAnswer:
		return "awaiting-answer"
	case PhaseFinished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State holds the counters of one session. It is owned by a Controller and
// replaced wholesale at the next session start.
type State struct {
	Phase Phase

	// Total is the number of questions chosen for the session.
	Total int

	// Index is the number of answered questions (0-based position of the next one).
	Index int

	// Correct is the number of correct answers so far.
	Correct int

	// Streak is the current run of consecutive correct answers.
	Streak int

	// BestStreak is the longest streak seen in this session.
	BestStreak int

	// StartedAt is set when the first question is displayed.
	StartedAt time.Time

	// Elapsed is frozen when the timer stops.
	Elapsed time.Duration

	// ReadyToFinish marks the pending-Finished state once Index reaches Total.
	ReadyToFinish bool

	timerStopped bool
}

func newState(total int) State {
	return State{Phase: PhaseInProgress, Total: total}
}

// recordAnswer applies one answer outcome to the counters.
func (s *State) recordAnswer(success bool) {
	s.Index++
	if success {
		s.Correct++
		s.Streak++
		if s.Streak > s.BestStreak {
			s.BestStreak = s.Streak
		}
	} else {
		s.Streak = 0
	}
	s.Phase = PhaseInProgress
	if s.Index >= s.Total {
		s.ReadyToFinish = true
	}
}

// Exhausted reports whether every question of the session has been answered.
func (s State) Exhausted() bool {
	return s.Index >= s.Total
}

func (s *State) startTimer(now time.Time) {
	if s.StartedAt.IsZero() && !s.timerStopped {
		s.StartedAt = now
	}
}

// stopTimer freezes the elapsed time, floored to whole seconds. Only the
// first call has an effect.
func (s *State) stopTimer(now time.Time) {
	if s.timerStopped {
		return
	}
	s.timerStopped = true
	if s.StartedAt.IsZero() {
		return
	}
	s.Elapsed = now.Sub(s.StartedAt).Truncate(time.Second)
}

// ElapsedAt returns the elapsed session time at now, floored to seconds.
func (s State) ElapsedAt(now time.Time) time.Duration {
	if s.timerStopped || s.StartedAt.IsZero() {
		return s.Elapsed
	}
	return now.Sub(s.StartedAt).Truncate(time.Second)
}

// FormatElapsed renders d as MM:SS, or H:MM:SS past an hour.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	h, m, sec := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

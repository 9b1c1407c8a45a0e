package game

import "time"

// The session owns every timer it schedules. A scheduled timeout captures the
// session's epoch; by the time it is delivered the session may have moved on
// (countdown aborted, round ended early), so delivery compares epochs and
// drops stale firings. Bumping the epoch is the cancellation primitive; Stop
// on the underlying timer is only a courtesy.

type timerKind int

const (
	timerCountdown timerKind = iota
	timerRoundDeadline
	timerTick
	timerVoteDeadline
	timerIdle
)

func (k timerKind) String() string {
	switch k {
	case timerCountdown:
		return "countdown"
	case timerRoundDeadline:
		return "round_deadline"
	case timerTick:
		return "tick"
	case timerVoteDeadline:
		return "vote_deadline"
	case timerIdle:
		return "idle"
	}
	return "unknown"
}

type timerCmd struct {
	epoch uint64
	kind  timerKind
	at    time.Time
}

func (timerCmd) isCommand() {}

// schedule arms a one-shot timeout that posts back into the session inbox,
// tagged with the current epoch.
func (s *Session) schedule(d time.Duration, kind timerKind) {
	epoch := s.epoch
	t := time.AfterFunc(d, func() {
		s.post(timerCmd{epoch: epoch, kind: kind, at: time.Now()})
	})
	s.pending = append(s.pending, t)
}

// cancelTimers invalidates everything scheduled so far. Races at the firing
// boundary are resolved by the epoch check on delivery.
func (s *Session) cancelTimers() {
	s.epoch++
	for _, t := range s.pending {
		t.Stop()
	}
	s.pending = s.pending[:0]
}

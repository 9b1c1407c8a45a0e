package game

import "errors"

// Error taxonomy for session handling. Protocol violations and join refusals
// are reported back to the offending connection only; stale events are
// dropped; internal inconsistencies abort the session to a safe terminal
// state.
var (
	// ErrProtocolViolation covers malformed messages and messages that are
	// wrong for the current phase.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrStaleEvent marks a timer firing that lost the race against
	// cancellation. Always discarded silently.
	ErrStaleEvent = errors.New("stale event")

	// ErrSessionFull refuses a join against a full session.
	ErrSessionFull = errors.New("session is full")

	// ErrSessionInProgress refuses a join while a round is running; the
	// client should wait for the successor session instead.
	ErrSessionInProgress = errors.New("session already in progress")

	// ErrSessionClosed means the session reached Handoff or was destroyed.
	ErrSessionClosed = errors.New("session closed")

	ErrInvalidModeChoice = errors.New("invalid mode choice")

	// ErrInternalInconsistency flags an invariant violation. The session
	// treats it as a defect and aborts to Handoff with no winner.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

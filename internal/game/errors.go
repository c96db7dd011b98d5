// Package game implements the live trial protocol: pacing checks, answer
// grading, and the per-participant state machine that drives them.
package game

import (
	"errors"
)

// Protocol errors. All are fatal to the current message: the handler performs
// no partial writes before returning one of these, and the host is expected to
// end the live session rather than retry.
var (
	// ErrMalformedMessage reports a client message matching neither of the
	// two accepted shapes.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrPacingViolation reports a request issued before its pacing threshold
	// elapsed. Likely a scripted client.
	ErrPacingViolation = errors.New("pacing violation")

	// ErrIncompleteTrial reports an attempt to advance past an unsolved
	// puzzle when policy forbids it.
	ErrIncompleteTrial = errors.New("incomplete trial")

	// ErrNoActiveTrial reports an answer submitted with nothing to answer.
	ErrNoActiveTrial = errors.New("no active trial")

	// ErrInvalidAnswer reports an answer that cannot be parsed or compared.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// ErrorKind returns the wire name for a protocol error, or "" if err is not
// one of the protocol sentinels.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedMessage):
		return "malformed_message"
	case errors.Is(err, ErrPacingViolation):
		return "pacing_violation"
	case errors.Is(err, ErrIncompleteTrial):
		return "incomplete_trial"
	case errors.Is(err, ErrNoActiveTrial):
		return "no_active_trial"
	case errors.Is(err, ErrInvalidAnswer):
		return "invalid_answer"
	default:
		return ""
	}
}

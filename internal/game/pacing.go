package game

import (
	"fmt"
	"time"

	"github.com/ashureev/puzzle-labs/internal/config"
	"github.com/ashureev/puzzle-labs/internal/domain"
)

// nextOutcome is the verdict for an allowed "next puzzle" transition.
type nextOutcome int

const (
	nextAllow nextOutcome = iota
	nextRoundComplete
)

// checkNext decides whether a new puzzle may be generated. last is the active
// trial, or nil before the first puzzle. A request arriving exactly at the
// delay threshold is accepted.
func checkNext(exp config.Experiment, now time.Time, last *domain.Trial) (nextOutcome, error) {
	if last == nil {
		return nextAllow, nil
	}

	if last.Age(now) < exp.TrialDelay {
		return 0, fmt.Errorf("%w: next puzzle requested %v after the last, minimum is %v",
			ErrPacingViolation, last.Age(now), exp.TrialDelay)
	}
	if exp.ForceSolve && !last.Solved() {
		return 0, fmt.Errorf("%w: puzzle %d must be solved before advancing",
			ErrIncompleteTrial, last.Iteration)
	}
	if !exp.AllowSkip && !last.Answered() {
		return 0, fmt.Errorf("%w: puzzle %d has no answer and skipping is disabled",
			ErrIncompleteTrial, last.Iteration)
	}

	if exp.NumIterations > 0 && last.Iteration == exp.NumIterations {
		return nextRoundComplete, nil
	}
	return nextAllow, nil
}

// checkAnswer decides whether an answer submission may be graded. Retries are
// rate-limited, not forbidden.
func checkAnswer(exp config.Experiment, now time.Time, last *domain.Trial) error {
	if last == nil {
		return fmt.Errorf("%w: answer submitted before any puzzle was requested", ErrNoActiveTrial)
	}
	if last.AnsweredAt != nil && last.SinceAnswer(now) < exp.RetryDelay {
		return fmt.Errorf("%w: retry %v after the last answer, minimum is %v",
			ErrPacingViolation, last.SinceAnswer(now), exp.RetryDelay)
	}
	return nil
}

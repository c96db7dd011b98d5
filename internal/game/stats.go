package game

import (
	"github.com/ashureev/puzzle-labs/internal/domain"
)

// Summarize derives summary counters from a participant's full trial log.
// Recomputed on demand rather than cached incrementally, so it cannot drift
// from the underlying trials.
func Summarize(trials []*domain.Trial) domain.Stats {
	var s domain.Stats
	s.Total = len(trials)
	for _, t := range trials {
		if !t.Answered() {
			s.Unanswered++
			continue
		}
		s.Answered++
		if t.IsCorrect == nil {
			continue
		}
		if *t.IsCorrect {
			s.Correct++
		} else {
			s.Incorrect++
		}
	}
	return s
}

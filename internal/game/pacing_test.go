package game

import (
	"errors"
	"testing"
	"time"

	"github.com/ashureev/puzzle-labs/internal/config"
	"github.com/ashureev/puzzle-labs/internal/domain"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func trialAt(created time.Time, iteration int) *domain.Trial {
	return &domain.Trial{Iteration: iteration, CreatedAt: created}
}

func answered(t *domain.Trial, at time.Time, correct bool) *domain.Trial {
	answer := "x"
	t.Answer = &answer
	t.AnsweredAt = &at
	t.IsCorrect = &correct
	return t
}

func TestCheckNextFirstPuzzleAlwaysAllowed(t *testing.T) {
	exp := config.Experiment{TrialDelay: time.Second}

	outcome, err := checkNext(exp, base, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != nextAllow {
		t.Errorf("Expected nextAllow, got %v", outcome)
	}
}

func TestCheckNextPacing(t *testing.T) {
	exp := config.Experiment{TrialDelay: time.Second, AllowSkip: true}
	last := trialAt(base, 1)

	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr bool
	}{
		{"too fast", 500 * time.Millisecond, true},
		{"just under", time.Second - time.Millisecond, true},
		{"exactly at threshold", time.Second, false},
		{"past threshold", 2 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := checkNext(exp, base.Add(tt.elapsed), last)
			if tt.wantErr {
				if !errors.Is(err, ErrPacingViolation) {
					t.Fatalf("Expected ErrPacingViolation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		})
	}
}

func TestCheckNextSkipPolicy(t *testing.T) {
	now := base.Add(time.Minute)

	tests := []struct {
		name    string
		exp     config.Experiment
		last    *domain.Trial
		wantErr error
	}{
		{
			name:    "unanswered and skipping disabled",
			exp:     config.Experiment{},
			last:    trialAt(base, 1),
			wantErr: ErrIncompleteTrial,
		},
		{
			name: "unanswered but skipping allowed",
			exp:  config.Experiment{AllowSkip: true},
			last: trialAt(base, 1),
		},
		{
			name:    "force solve after incorrect answer",
			exp:     config.Experiment{ForceSolve: true},
			last:    answered(trialAt(base, 1), base.Add(time.Second), false),
			wantErr: ErrIncompleteTrial,
		},
		{
			name: "force solve after correct answer",
			exp:  config.Experiment{ForceSolve: true},
			last: answered(trialAt(base, 1), base.Add(time.Second), true),
		},
		{
			name:    "force solve before any answer",
			exp:     config.Experiment{ForceSolve: true, AllowSkip: true},
			last:    trialAt(base, 1),
			wantErr: ErrIncompleteTrial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := checkNext(tt.exp, now, tt.last)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		})
	}
}

func TestCheckNextRoundComplete(t *testing.T) {
	exp := config.Experiment{NumIterations: 3, AllowSkip: true}
	now := base.Add(time.Minute)

	outcome, err := checkNext(exp, now, trialAt(base, 3))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != nextRoundComplete {
		t.Errorf("Expected nextRoundComplete at the iteration cap, got %v", outcome)
	}

	outcome, err = checkNext(exp, now, trialAt(base, 2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != nextAllow {
		t.Errorf("Expected nextAllow below the iteration cap, got %v", outcome)
	}

	// Zero cap means unlimited iterations.
	unlimited := config.Experiment{AllowSkip: true}
	outcome, err = checkNext(unlimited, now, trialAt(base, 100))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != nextAllow {
		t.Errorf("Expected nextAllow with no iteration cap, got %v", outcome)
	}
}

func TestCheckAnswer(t *testing.T) {
	exp := config.Experiment{RetryDelay: time.Second}

	if err := checkAnswer(exp, base, nil); !errors.Is(err, ErrNoActiveTrial) {
		t.Fatalf("Expected ErrNoActiveTrial, got %v", err)
	}

	// First answer on a fresh trial is never rate-limited.
	if err := checkAnswer(exp, base, trialAt(base, 1)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	last := answered(trialAt(base, 1), base.Add(5*time.Second), false)

	if err := checkAnswer(exp, base.Add(5*time.Second+200*time.Millisecond), last); !errors.Is(err, ErrPacingViolation) {
		t.Fatalf("Expected ErrPacingViolation for fast retry, got %v", err)
	}
	if err := checkAnswer(exp, base.Add(6*time.Second), last); err != nil {
		t.Fatalf("Unexpected error for paced retry: %v", err)
	}
}

// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/puzzle-labs/internal/domain"
)

// Repository defines the interface for persisting participants and their
// trial logs. The trial log is append-only: trials are never deleted, and the
// only in-place update allowed is recording an answer on the active trial.
type Repository interface {
	// GetParticipant retrieves a participant by ID. Returns (nil, nil) if no
	// such participant exists.
	GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error)

	// UpsertParticipant creates or updates a participant record.
	UpsertParticipant(ctx context.Context, p *domain.Participant) error

	// FinalizeRound writes the end-of-round counters and marks the
	// participant's round as finished.
	FinalizeRound(ctx context.Context, participantID string, stats domain.Stats) error

	// UnfinishedRounds retrieves participants whose round started before the
	// cutoff and has not been finalized yet.
	UnfinishedRounds(ctx context.Context, startedBefore time.Time) ([]*domain.Participant, error)

	// AppendTrial appends a new trial to a participant's log and fills in the
	// assigned trial ID. The (participant, iteration) pair must be unused.
	AppendTrial(ctx context.Context, t *domain.Trial) error

	// LastTrial retrieves the most recently appended trial for a participant.
	// Returns (nil, nil) if the participant has no trials.
	LastTrial(ctx context.Context, participantID string) (*domain.Trial, error)

	// RecordAnswer updates the response fields of a trial.
	RecordAnswer(ctx context.Context, trialID int64, answer string, answeredAt time.Time, isCorrect bool, retries int) error

	// TrialsByParticipant retrieves all trials for a participant in iteration
	// order.
	TrialsByParticipant(ctx context.Context, participantID string) ([]*domain.Trial, error)

	// AllTrials retrieves every trial across all participants for bulk export,
	// ordered by participant and iteration.
	AllTrials(ctx context.Context) ([]*domain.Trial, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

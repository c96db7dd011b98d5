// Package round manages the wall-clock lifecycle of experiment rounds. The
// live protocol handler never checks round age itself; this sweeper finalizes
// counters for rounds that have outlived the configured game duration.
package round

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/puzzle-labs/internal/game"
	"github.com/ashureev/puzzle-labs/internal/store"
	"github.com/jonboulle/clockwork"
)

const sweepInterval = 30 * time.Second

// StartSweeper runs a background goroutine that periodically finalizes rounds
// older than gameDuration. It stops when ctx is cancelled.
func StartSweeper(ctx context.Context, repo store.Repository, clock clockwork.Clock, gameDuration time.Duration) {
	ticker := clock.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("round sweeper started", "interval", sweepInterval, "game_duration", gameDuration)

		for {
			select {
			case <-ticker.Chan():
				Sweep(ctx, repo, clock, gameDuration)
			case <-ctx.Done():
				slog.Info("round sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep finalizes every unfinished round that started more than gameDuration
// ago. Exposed for tests and for a final pass at shutdown.
func Sweep(ctx context.Context, repo store.Repository, clock clockwork.Clock, gameDuration time.Duration) {
	cutoff := clock.Now().Add(-gameDuration)

	expired, err := repo.UnfinishedRounds(ctx, cutoff)
	if err != nil {
		slog.Error("round sweeper failed to list unfinished rounds", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	slog.Info("round sweeper found expired rounds", "count", len(expired))

	for _, p := range expired {
		trials, err := repo.TrialsByParticipant(ctx, p.ParticipantID)
		if err != nil {
			slog.Error("round sweeper failed to load trials",
				"error", err, "participant_id", p.ParticipantID)
			continue
		}

		stats := game.Summarize(trials)
		if err := repo.FinalizeRound(ctx, p.ParticipantID, stats); err != nil {
			slog.Error("round sweeper failed to finalize round",
				"error", err, "participant_id", p.ParticipantID)
			continue
		}

		slog.Info("round finalized",
			"participant_id", p.ParticipantID,
			"total", stats.Total,
			"correct", stats.Correct,
			"incorrect", stats.Incorrect)
	}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/puzzle-labs/internal/domain"
	"github.com/ashureev/puzzle-labs/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// Timestamps are stored as Unix milliseconds: pacing thresholds are
// sub-second, so second precision would round them away.
func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS participants (
		participant_id TEXT PRIMARY KEY,
		session_code TEXT NOT NULL,
		variant TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		correct INTEGER NOT NULL DEFAULT 0,
		incorrect INTEGER NOT NULL DEFAULT 0,
		payoff INTEGER NOT NULL DEFAULT 0,
		round_started INTEGER NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_participants_unfinished ON participants(round_started) WHERE finished = 0;

	CREATE TABLE IF NOT EXISTS trials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_id TEXT NOT NULL REFERENCES participants(participant_id),
		iteration INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		variant TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL,
		solution TEXT NOT NULL,
		congruent INTEGER,
		answer TEXT,
		answered_at INTEGER,
		is_correct INTEGER,
		retries INTEGER NOT NULL DEFAULT 0,
		UNIQUE(participant_id, iteration)
	);
	CREATE INDEX IF NOT EXISTS idx_trials_participant ON trials(participant_id, iteration);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetParticipant retrieves a participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	query := `
		SELECT participant_id, session_code, variant,
		       total, correct, incorrect, payoff,
		       round_started, finished, created_at, updated_at
		FROM participants WHERE participant_id = ?`

	row := s.db.QueryRowContext(ctx, query, participantID)

	var p domain.Participant
	var roundStarted, createdAt, updatedAt int64

	err := row.Scan(
		&p.ParticipantID, &p.SessionCode, &p.Variant,
		&p.Total, &p.Correct, &p.Incorrect, &p.Payoff,
		&roundStarted, &p.Finished, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan participant row: %w", err)
	}

	p.RoundStarted = time.UnixMilli(roundStarted)
	p.CreatedAt = time.UnixMilli(createdAt)
	p.UpdatedAt = time.UnixMilli(updatedAt)

	return &p, nil
}

// UpsertParticipant creates or updates a participant record.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, p *domain.Participant) error {
	query := `
	INSERT INTO participants (
		participant_id, session_code, variant,
		total, correct, incorrect, payoff,
		round_started, finished, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(participant_id) DO UPDATE SET
		session_code = excluded.session_code,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.ParticipantID, p.SessionCode, p.Variant,
		p.Total, p.Correct, p.Incorrect, p.Payoff,
		p.RoundStarted.UnixMilli(), p.Finished,
		p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// FinalizeRound writes end-of-round counters and marks the round finished.
func (s *SQLiteStore) FinalizeRound(ctx context.Context, participantID string, stats domain.Stats) error {
	query := `
		UPDATE participants
		SET total = ?, correct = ?, incorrect = ?, payoff = ?, finished = 1, updated_at = ?
		WHERE participant_id = ?`

	result, err := s.db.ExecContext(ctx, query,
		stats.Total, stats.Correct, stats.Incorrect, stats.Payoff(),
		time.Now().UnixMilli(), participantID,
	)
	if err != nil {
		return fmt.Errorf("finalize round: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("participant not found: %s", participantID)
	}
	return nil
}

// UnfinishedRounds retrieves participants whose round started before the
// cutoff and has not been finalized.
func (s *SQLiteStore) UnfinishedRounds(ctx context.Context, startedBefore time.Time) ([]*domain.Participant, error) {
	query := `
		SELECT participant_id, session_code, variant,
		       total, correct, incorrect, payoff,
		       round_started, finished, created_at, updated_at
		FROM participants WHERE finished = 0 AND round_started < ?`

	rows, err := s.db.QueryContext(ctx, query, startedBefore.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query unfinished rounds: %w", err)
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		var p domain.Participant
		var roundStarted, createdAt, updatedAt int64

		if err := rows.Scan(
			&p.ParticipantID, &p.SessionCode, &p.Variant,
			&p.Total, &p.Correct, &p.Incorrect, &p.Payoff,
			&roundStarted, &p.Finished, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan unfinished round row: %w", err)
		}

		p.RoundStarted = time.UnixMilli(roundStarted)
		p.CreatedAt = time.UnixMilli(createdAt)
		p.UpdatedAt = time.UnixMilli(updatedAt)
		participants = append(participants, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unfinished rounds: %w", err)
	}

	return participants, nil
}

// AppendTrial appends a new trial and fills in the assigned trial ID.
func (s *SQLiteStore) AppendTrial(ctx context.Context, t *domain.Trial) error {
	query := `
	INSERT INTO trials (
		participant_id, iteration, created_at, variant,
		width, height, content, solution, congruent, retries
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var congruent interface{}
	if t.Congruent != nil {
		congruent = *t.Congruent
	}

	result, err := s.db.ExecContext(ctx, query,
		t.ParticipantID, t.Iteration, t.CreatedAt.UnixMilli(), t.Variant,
		t.Width, t.Height, t.Content, t.Solution, congruent, t.Retries,
	)
	if err != nil {
		return fmt.Errorf("append trial: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("trial insert id: %w", err)
	}
	t.ID = id
	return nil
}

// LastTrial retrieves the most recently appended trial for a participant.
func (s *SQLiteStore) LastTrial(ctx context.Context, participantID string) (*domain.Trial, error) {
	query := trialColumns + ` WHERE participant_id = ? ORDER BY iteration DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, participantID)
	t, err := scanTrial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan last trial: %w", err)
	}
	return t, nil
}

// RecordAnswer updates the response fields of a trial. Retries briefly on
// SQLite lock contention.
func (s *SQLiteStore) RecordAnswer(ctx context.Context, trialID int64, answer string, answeredAt time.Time, isCorrect bool, retries int) error {
	query := `
		UPDATE trials
		SET answer = ?, answered_at = ?, is_correct = ?, retries = ?
		WHERE id = ?`

	maxAttempts := 3
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		result, err := s.db.ExecContext(ctx, query,
			answer, answeredAt.UnixMilli(), isCorrect, retries, trialID)
		if err == nil {
			rows, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}
			if rows == 0 {
				return fmt.Errorf("trial not found: %d", trialID)
			}
			return nil
		}

		lastErr = err
		if !shared.IsSQLiteBusy(err) || i == maxAttempts-1 {
			break
		}
		time.Sleep(baseDelay * time.Duration(1<<i))
	}

	return fmt.Errorf("record answer: %w", lastErr)
}

// TrialsByParticipant retrieves all trials for a participant in iteration order.
func (s *SQLiteStore) TrialsByParticipant(ctx context.Context, participantID string) ([]*domain.Trial, error) {
	query := trialColumns + ` WHERE participant_id = ? ORDER BY iteration ASC`
	rows, err := s.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	return collectTrials(rows)
}

// AllTrials retrieves every trial across all participants for bulk export.
func (s *SQLiteStore) AllTrials(ctx context.Context) ([]*domain.Trial, error) {
	query := trialColumns + ` ORDER BY participant_id ASC, iteration ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all trials: %w", err)
	}
	return collectTrials(rows)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const trialColumns = `
	SELECT id, participant_id, iteration, created_at, variant,
	       width, height, content, solution, congruent,
	       answer, answered_at, is_correct, retries
	FROM trials`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrial(row rowScanner) (*domain.Trial, error) {
	var t domain.Trial
	var createdAt int64
	var congruent, isCorrect sql.NullBool
	var answer sql.NullString
	var answeredAt sql.NullInt64

	err := row.Scan(
		&t.ID, &t.ParticipantID, &t.Iteration, &createdAt, &t.Variant,
		&t.Width, &t.Height, &t.Content, &t.Solution, &congruent,
		&answer, &answeredAt, &isCorrect, &t.Retries,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = time.UnixMilli(createdAt)
	if congruent.Valid {
		t.Congruent = &congruent.Bool
	}
	if answer.Valid {
		t.Answer = &answer.String
	}
	if answeredAt.Valid {
		ts := time.UnixMilli(answeredAt.Int64)
		t.AnsweredAt = &ts
	}
	if isCorrect.Valid {
		t.IsCorrect = &isCorrect.Bool
	}

	return &t, nil
}

func collectTrials(rows *sql.Rows) ([]*domain.Trial, error) {
	defer rows.Close()

	var trials []*domain.Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trial row: %w", err)
		}
		trials = append(trials, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

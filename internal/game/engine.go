package game

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ashureev/puzzle-labs/internal/config"
	"github.com/ashureev/puzzle-labs/internal/domain"
	"github.com/ashureev/puzzle-labs/internal/puzzle"
	"github.com/ashureev/puzzle-labs/internal/store"
	"github.com/jonboulle/clockwork"
)

// clientMessage is the union of the two accepted client message shapes.
// Presence of a key, not its value, selects the transition.
type clientMessage struct {
	Next   *json.RawMessage `json:"next,omitempty"`
	Answer *json.RawMessage `json:"answer,omitempty"`
}

// ImageResponse carries the rendered puzzle for a new trial.
type ImageResponse struct {
	Image string `json:"image"`
}

// GameOverResponse signals the iteration cap has been reached.
type GameOverResponse struct {
	GameOver bool `json:"gameover"`
}

// FeedbackResponse carries the verdict for a submitted answer. Feedback is
// nil (wire null) for an accepted-but-empty answer; Stats is omitted then.
type FeedbackResponse struct {
	Feedback *bool         `json:"feedback"`
	Stats    *domain.Stats `json:"stats,omitempty"`
}

// session is the per-participant state the engine keeps in memory: a lock
// serializing the load-check-mutate sequence, and that participant's seeded
// randomness source.
type session struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Engine is the live protocol state machine. One engine serves all
// participants; messages for the same participant are processed strictly one
// at a time, while different participants proceed concurrently.
type Engine struct {
	repo     store.Repository
	variant  puzzle.Variant
	renderer puzzle.Renderer
	exp      config.Experiment
	clock    clockwork.Clock
	seed     int64

	mu       sync.Mutex
	sessions map[string]*session
}

// NewEngine creates the protocol engine. If the experiment seed is zero, a
// clock-derived seed is used; fixing the seed makes puzzle streams replayable.
func NewEngine(repo store.Repository, variant puzzle.Variant, renderer puzzle.Renderer, exp config.Experiment, clock clockwork.Clock) *Engine {
	seed := exp.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}
	return &Engine{
		repo:     repo,
		variant:  variant,
		renderer: renderer,
		exp:      exp,
		clock:    clock,
		seed:     seed,
		sessions: make(map[string]*session),
	}
}

func (e *Engine) session(participantID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[participantID]; ok {
		return s
	}

	h := fnv.New64a()
	h.Write([]byte(participantID))
	s := &session{rng: rand.New(rand.NewSource(e.seed ^ int64(h.Sum64())))}
	e.sessions[participantID] = s
	return s
}

// HandleMessage processes one inbound client message and returns the response
// payload to send back. Protocol violations return one of the sentinel errors
// from this package; no store mutation has happened when they do.
func (e *Engine) HandleMessage(ctx context.Context, participantID string, raw []byte) (interface{}, error) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	s := e.session(participantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := e.clock.Now()

	last, err := e.repo.LastTrial(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("load last trial: %w", err)
	}

	switch {
	case msg.Next != nil:
		return e.handleNext(ctx, participantID, now, last, s.rng)
	case msg.Answer != nil:
		return e.handleAnswer(ctx, participantID, now, last, *msg.Answer)
	default:
		return nil, fmt.Errorf("%w: expected a next or answer key", ErrMalformedMessage)
	}
}

func (e *Engine) handleNext(ctx context.Context, participantID string, now time.Time, last *domain.Trial, rng *rand.Rand) (interface{}, error) {
	outcome, err := checkNext(e.exp, now, last)
	if err != nil {
		return nil, err
	}

	if outcome == nextRoundComplete {
		if err := e.finalizeRound(ctx, participantID); err != nil {
			return nil, err
		}
		slog.Info("round complete", "participant_id", participantID, "iterations", last.Iteration)
		return GameOverResponse{GameOver: true}, nil
	}

	iteration := 1
	if last != nil {
		iteration = last.Iteration + 1
	}

	spec := e.variant.Generate(rng)
	trial := &domain.Trial{
		ParticipantID: participantID,
		Iteration:     iteration,
		CreatedAt:     now,
		Variant:       spec.Variant,
		Width:         spec.Width,
		Height:        spec.Height,
		Content:       spec.Content,
		Solution:      spec.Solution,
		Congruent:     spec.Congruent,
	}
	if err := e.repo.AppendTrial(ctx, trial); err != nil {
		return nil, fmt.Errorf("append trial: %w", err)
	}

	image, err := e.renderer.RenderDataURI(spec)
	if err != nil {
		return nil, fmt.Errorf("render puzzle: %w", err)
	}

	slog.Debug("trial created", "participant_id", participantID, "iteration", iteration)
	return ImageResponse{Image: image}, nil
}

func (e *Engine) handleAnswer(ctx context.Context, participantID string, now time.Time, last *domain.Trial, raw json.RawMessage) (interface{}, error) {
	if err := checkAnswer(e.exp, now, last); err != nil {
		return nil, err
	}

	answer, err := coerceAnswer(raw)
	if err != nil {
		return nil, err
	}

	// Blank answers are a neutral no-op for variants that allow them: no
	// mutation, null feedback.
	if answer == "" && e.variant.BlankIsNeutral() {
		return FeedbackResponse{}, nil
	}

	correct, err := e.variant.Grade(last.Solution, answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}

	retries := last.Retries + 1
	if err := e.repo.RecordAnswer(ctx, last.ID, answer, now, correct, retries); err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	trials, err := e.repo.TrialsByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("load trials for stats: %w", err)
	}
	stats := Summarize(trials)

	slog.Debug("answer graded",
		"participant_id", participantID,
		"iteration", last.Iteration,
		"correct", correct,
		"retries", retries)
	return FeedbackResponse{Feedback: &correct, Stats: &stats}, nil
}

func (e *Engine) finalizeRound(ctx context.Context, participantID string) error {
	trials, err := e.repo.TrialsByParticipant(ctx, participantID)
	if err != nil {
		return fmt.Errorf("load trials for round end: %w", err)
	}
	if err := e.repo.FinalizeRound(ctx, participantID, Summarize(trials)); err != nil {
		return fmt.Errorf("finalize round: %w", err)
	}
	return nil
}

// coerceAnswer accepts the JSON answer value as either a string or a number
// and normalizes it to its text form. Any other JSON type is invalid.
func coerceAnswer(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: answer must be a string or number, got %s", ErrInvalidAnswer, raw)
}

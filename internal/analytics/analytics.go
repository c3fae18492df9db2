package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnisource-labs/omni/internal/engine"
)

// ErrNotFound is returned when feedback targets an unknown record.
var ErrNotFound = errors.New("interaction not found")

// Interaction is one recorded question/answer exchange.
type Interaction struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	RoutedSource   string    `json:"routed_source"`
	Success        bool      `json:"success"`
	Feedback       *int      `json:"feedback,omitempty"`
	FeedbackText   *string   `json:"feedback_text,omitempty"`
	ResponseTimeMS float64   `json:"response_time_ms"`
}

// FeedbackTally splits feedback scores into up and down votes.
type FeedbackTally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Summary aggregates the recorded interactions.
type Summary struct {
	TotalInteractions int            `json:"total_interactions"`
	BySource          map[string]int `json:"by_source"`
	AvgResponseTimeMS float64        `json:"avg_response_time_ms"`
	Feedback          FeedbackTally  `json:"feedback"`
}

// Store persists interactions and their feedback.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS interactions (
			id UUID PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			conversation_id TEXT NOT NULL,
			question TEXT NOT NULL,
			routed_source TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			feedback INT,
			feedback_text TEXT,
			response_time_ms DOUBLE PRECISION NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create interactions: %w", err)
	}
	return nil
}

// Record stores a finished interaction with no feedback yet and returns its
// id. Satisfies the engine's Recorder port.
func (s *Store) Record(ctx context.Context, conversationID, question string, routedSource engine.RoutingDecision, success bool, elapsedMS float64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO interactions (id, ts, conversation_id, question, routed_source, success, feedback, feedback_text, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7)`,
		id, time.Now().UTC(), conversationID, question, string(routedSource), success, elapsedMS,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert interaction: %w", err)
	}
	return id, nil
}

// ApplyFeedback attaches a score and optional comment to a recorded
// interaction. Positive scores count as up votes, negative as down.
func (s *Store) ApplyFeedback(ctx context.Context, id uuid.UUID, score int, comment string) error {
	var text *string
	if comment != "" {
		text = &comment
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE interactions SET feedback = $2, feedback_text = $3 WHERE id = $1`,
		id, score, text,
	)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Info("feedback applied", "record_id", id, "score", score)
	return nil
}

// Summarize aggregates everything recorded so far.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	sum := Summary{BySource: make(map[string]int)}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(response_time_ms), 0),
		       COUNT(*) FILTER (WHERE feedback > 0),
		       COUNT(*) FILTER (WHERE feedback < 0)
		FROM interactions`).
		Scan(&sum.TotalInteractions, &sum.AvgResponseTimeMS, &sum.Feedback.Up, &sum.Feedback.Down)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate interactions: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT routed_source, COUNT(*) FROM interactions GROUP BY routed_source`)
	if err != nil {
		return Summary{}, fmt.Errorf("group by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return Summary{}, fmt.Errorf("scan source count: %w", err)
		}
		sum.BySource[source] = n
	}
	return sum, rows.Err()
}

// Reset deletes all recorded interactions.
func (s *Store) Reset(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM interactions`)
	if err != nil {
		return fmt.Errorf("reset interactions: %w", err)
	}
	s.logger.Info("analytics reset", "deleted", tag.RowsAffected())
	return nil
}

package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects for downstream consumers (dashboards, evaluation loops).
const (
	SubjectInteraction = "omni.interaction.recorded"
	SubjectFeedback    = "omni.feedback.applied"
)

// InteractionSignal is emitted after every answered question.
type InteractionSignal struct {
	RecordID       string  `json:"record_id"`
	ConversationID string  `json:"conversation_id"`
	RoutedSource   string  `json:"routed_source"`
	Success        bool    `json:"success"`
	CitationCount  int     `json:"citation_count"`
	ResponseTimeMS float64 `json:"response_time_ms"`
}

// FeedbackSignal is emitted when a user scores an answer.
type FeedbackSignal struct {
	RecordID string `json:"record_id"`
	Score    int    `json:"score"`
	Comment  string `json:"comment,omitempty"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func Connect(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}

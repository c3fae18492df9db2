package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omnisource-labs/omni/internal/analytics"
	"github.com/omnisource-labs/omni/internal/engine"
	"github.com/omnisource-labs/omni/internal/events"
	"github.com/omnisource-labs/omni/internal/ingest"
	"github.com/omnisource-labs/omni/internal/metrics"
)

// Answerer runs a question through the answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, conversationID string, history []engine.Turn) (engine.Result, error)
}

// Analytics is the recorded-interaction surface the API needs.
type Analytics interface {
	ApplyFeedback(ctx context.Context, id uuid.UUID, score int, comment string) error
	Summarize(ctx context.Context) (analytics.Summary, error)
	Reset(ctx context.Context) error
}

// Ingestor reloads the corpus and dataset from the data directory.
type Ingestor interface {
	Run(ctx context.Context) (ingest.Report, error)
}

// EventPublisher fans signals out to downstream consumers. May be nil when
// eventing is disabled.
type EventPublisher interface {
	Publish(subject string, data any) error
}

type Server struct {
	router    *chi.Mux
	srv       *http.Server
	engine    Answerer
	analytics Analytics
	ingestor  Ingestor
	publisher EventPublisher
	logger    *slog.Logger
}

func NewServer(port int, eng Answerer, an Analytics, ing Ingestor, pub EventPublisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		srv:       &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router},
		engine:    eng,
		analytics: an,
		ingestor:  ing,
		publisher: pub,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)
	router.Post("/api/v1/chat", s.chat)
	router.Post("/api/v1/feedback", s.feedback)
	router.Post("/api/v1/ingest", s.ingest)
	router.Get("/api/v1/analytics/summary", s.analyticsSummary)
	router.Post("/api/v1/analytics/reset", s.analyticsReset)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type chatRequest struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []engine.Turn `json:"messages"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	engine.Result
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "messages must not be empty"})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	start := time.Now()
	res, err := s.engine.Answer(r.Context(), req.ConversationID, req.Messages)
	elapsed := time.Since(start)
	if err != nil {
		metrics.QuestionErrors.Inc()
		s.logger.Error("chat failed", "conversation_id", req.ConversationID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	metrics.QuestionsAnswered.WithLabelValues(string(res.RoutedSource)).Inc()
	metrics.ResponseSeconds.Observe(elapsed.Seconds())

	if s.publisher != nil {
		signal := events.InteractionSignal{
			RecordID:       res.RecordID.String(),
			ConversationID: req.ConversationID,
			RoutedSource:   string(res.RoutedSource),
			Success:        len(res.Citations) > 0,
			CitationCount:  len(res.Citations),
			ResponseTimeMS: float64(elapsed) / float64(time.Millisecond),
		}
		if err := s.publisher.Publish(events.SubjectInteraction, signal); err != nil {
			s.logger.Warn("failed to publish interaction event", "error", err)
		}
	}

	if res.Citations == nil {
		res.Citations = []engine.Citation{}
	}
	writeJSON(w, http.StatusOK, chatResponse{ConversationID: req.ConversationID, Result: res})
}

type feedbackRequest struct {
	RecordID uuid.UUID `json:"record_id"`
	Score    int       `json:"score"`
	Comment  string    `json:"comment"`
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.RecordID == uuid.Nil || req.Score == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record_id and a non-zero score are required"})
		return
	}

	err := s.analytics.ApplyFeedback(r.Context(), req.RecordID, req.Score, req.Comment)
	if errors.Is(err, analytics.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
		return
	}
	if err != nil {
		s.logger.Error("feedback failed", "record_id", req.RecordID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to apply feedback"})
		return
	}

	direction := "up"
	if req.Score < 0 {
		direction = "down"
	}
	metrics.FeedbackReceived.WithLabelValues(direction).Inc()

	if s.publisher != nil {
		signal := events.FeedbackSignal{
			RecordID: req.RecordID.String(),
			Score:    req.Score,
			Comment:  req.Comment,
		}
		if err := s.publisher.Publish(events.SubjectFeedback, signal); err != nil {
			s.logger.Warn("failed to publish feedback event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingestor.Run(r.Context())
	if err != nil {
		s.logger.Error("ingest failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) analyticsSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.analytics.Summarize(r.Context())
	if err != nil {
		s.logger.Error("summary failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to summarize interactions"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) analyticsReset(w http.ResponseWriter, r *http.Request) {
	if err := s.analytics.Reset(r.Context()); err != nil {
		s.logger.Error("reset failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reset analytics"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

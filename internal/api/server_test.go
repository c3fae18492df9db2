package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/omnisource-labs/omni/internal/analytics"
	"github.com/omnisource-labs/omni/internal/engine"
	"github.com/omnisource-labs/omni/internal/ingest"
)

type stubAnswerer struct {
	res      engine.Result
	err      error
	lastConv string
}

func (s *stubAnswerer) Answer(_ context.Context, conversationID string, _ []engine.Turn) (engine.Result, error) {
	s.lastConv = conversationID
	return s.res, s.err
}

type stubAnalytics struct {
	feedbackErr error
	summary     analytics.Summary
	resets      int
	lastScore   int
}

func (s *stubAnalytics) ApplyFeedback(_ context.Context, _ uuid.UUID, score int, _ string) error {
	s.lastScore = score
	return s.feedbackErr
}

func (s *stubAnalytics) Summarize(_ context.Context) (analytics.Summary, error) {
	return s.summary, nil
}

func (s *stubAnalytics) Reset(_ context.Context) error {
	s.resets++
	return nil
}

type stubIngestor struct {
	report ingest.Report
	err    error
}

func (s *stubIngestor) Run(_ context.Context) (ingest.Report, error) {
	return s.report, s.err
}

type stubPublisher struct {
	subjects []string
}

func (s *stubPublisher) Publish(subject string, _ any) error {
	s.subjects = append(s.subjects, subject)
	return nil
}

func newTestServer(eng Answerer, an Analytics, ing Ingestor, pub EventPublisher) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httptest.NewServer(NewServer(0, eng, an, ing, pub, logger).Handler())
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestChat(t *testing.T) {
	recordID := uuid.New()
	eng := &stubAnswerer{res: engine.Result{
		Answer:       "Refunds within 30 days.",
		RoutedSource: engine.RouteDocument,
		Citations: []engine.Citation{
			{SourceType: "document", FileName: "handbook.txt", Page: 2},
		},
		RecordID: recordID,
	}}
	pub := &stubPublisher{}
	ts := newTestServer(eng, &stubAnalytics{}, &stubIngestor{}, pub)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/chat", map[string]any{
		"conversation_id": "conv-1",
		"messages":        []map[string]string{{"role": "user", "content": "returns policy?"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body chatResponse
	decodeBody(t, resp, &body)
	if body.ConversationID != "conv-1" {
		t.Errorf("expected conversation id echoed, got %q", body.ConversationID)
	}
	if body.Answer != "Refunds within 30 days." {
		t.Errorf("unexpected answer: %q", body.Answer)
	}
	if body.RecordID != recordID {
		t.Errorf("expected record id %s, got %s", recordID, body.RecordID)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "omni.interaction.recorded" {
		t.Errorf("expected interaction event, got %v", pub.subjects)
	}
}

func TestChat_GeneratesConversationID(t *testing.T) {
	eng := &stubAnswerer{res: engine.Result{Answer: "hi", RoutedSource: engine.RouteDocument}}
	ts := newTestServer(eng, &stubAnalytics{}, &stubIngestor{}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if _, err := uuid.Parse(eng.lastConv); err != nil {
		t.Errorf("expected generated uuid conversation id, got %q", eng.lastConv)
	}
}

func TestChat_EmptyMessages(t *testing.T) {
	ts := newTestServer(&stubAnswerer{}, &stubAnalytics{}, &stubIngestor{}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/chat", map[string]any{"messages": []any{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestChat_EngineFailure(t *testing.T) {
	eng := &stubAnswerer{err: fmt.Errorf("routing: model unavailable")}
	ts := newTestServer(eng, &stubAnalytics{}, &stubIngestor{}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "q"}},
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestFeedback(t *testing.T) {
	an := &stubAnalytics{}
	pub := &stubPublisher{}
	ts := newTestServer(&stubAnswerer{}, an, &stubIngestor{}, pub)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/feedback", map[string]any{
		"record_id": uuid.New(),
		"score":     1,
		"comment":   "helpful",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body)
	}
	if an.lastScore != 1 {
		t.Errorf("expected score forwarded, got %d", an.lastScore)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "omni.feedback.applied" {
		t.Errorf("expected feedback event, got %v", pub.subjects)
	}
}

func TestFeedback_UnknownRecord(t *testing.T) {
	an := &stubAnalytics{feedbackErr: analytics.ErrNotFound}
	ts := newTestServer(&stubAnswerer{}, an, &stubIngestor{}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/feedback", map[string]any{
		"record_id": uuid.New(),
		"score":     -1,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "not_found" {
		t.Errorf("expected not_found status, got %v", body)
	}
}

func TestFeedback_MissingFields(t *testing.T) {
	ts := newTestServer(&stubAnswerer{}, &stubAnalytics{}, &stubIngestor{}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/feedback", map[string]any{"score": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestIngest(t *testing.T) {
	ing := &stubIngestor{report: ingest.Report{DocumentChunks: 12, DatasetRows: 300}}
	ts := newTestServer(&stubAnswerer{}, &stubAnalytics{}, ing, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/ingest", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var report ingest.Report
	decodeBody(t, resp, &report)
	if report.DocumentChunks != 12 || report.DatasetRows != 300 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestAnalyticsSummaryAndReset(t *testing.T) {
	an := &stubAnalytics{summary: analytics.Summary{
		TotalInteractions: 5,
		BySource:          map[string]int{"document": 3, "tabular": 2},
		AvgResponseTimeMS: 150,
		Feedback:          analytics.FeedbackTally{Up: 2, Down: 1},
	}}
	ts := newTestServer(&stubAnswerer{}, an, &stubIngestor{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/analytics/summary")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var sum analytics.Summary
	decodeBody(t, resp, &sum)
	if sum.TotalInteractions != 5 || sum.Feedback.Up != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	resp = postJSON(t, ts.URL+"/api/v1/analytics/reset", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	if an.resets != 1 {
		t.Errorf("expected one reset, got %d", an.resets)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&stubAnswerer{}, &stubAnalytics{}, &stubIngestor{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected ok, got %v", body)
	}
}

package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/omnisource-labs/omni/internal/corpus"
	"github.com/omnisource-labs/omni/internal/dataset"
	"github.com/omnisource-labs/omni/internal/gemini"
)

// RoutingDecision names the retrieval branch a question is sent down.
type RoutingDecision string

const (
	RouteDocument RoutingDecision = "document"
	RouteTabular  RoutingDecision = "tabular"
	RouteBoth     RoutingDecision = "both"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation points at the evidence behind an answer. SourceType is "document"
// or "tabular"; the remaining fields depend on which.
type Citation struct {
	SourceType string `json:"source_type"`
	FileName   string `json:"file_name,omitempty"`
	Page       int    `json:"page,omitempty"`
	Table      string `json:"table,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Result is a finished answer with its provenance.
type Result struct {
	Answer       string          `json:"answer"`
	RoutedSource RoutingDecision `json:"routed_source"`
	Citations    []Citation      `json:"citations"`
	RecordID     uuid.UUID       `json:"record_id"`
}

// CompletionClient is the LLM surface the engine needs.
type CompletionClient interface {
	Complete(ctx context.Context, system string, messages []gemini.Message) (string, error)
}

// DocumentIndex serves semantic search over the ingested corpus.
type DocumentIndex interface {
	Search(ctx context.Context, query string, k int) ([]corpus.Passage, error)
}

// TabularStore executes generated queries against the dataset.
type TabularStore interface {
	Execute(ctx context.Context, query string) (dataset.Result, error)
}

// Recorder persists a finished interaction and returns its record id.
type Recorder interface {
	Record(ctx context.Context, conversationID, question string, routedSource RoutingDecision, success bool, elapsedMS float64) (uuid.UUID, error)
}

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/omnisource-labs/omni/internal/gemini"
)

// route classifies the question into a retrieval branch. An unrecognized
// reply falls back to the document branch; a failed LLM call is fatal for
// the whole turn because nothing downstream can run without a decision.
func (e *Engine) route(ctx context.Context, question string) (RoutingDecision, error) {
	reply, err := e.llm.Complete(ctx, routerPrompt, []gemini.Message{
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", fmt.Errorf("routing: %w", err)
	}

	switch RoutingDecision(strings.ToLower(strings.TrimSpace(reply))) {
	case RouteDocument:
		return RouteDocument, nil
	case RouteTabular:
		return RouteTabular, nil
	case RouteBoth:
		return RouteBoth, nil
	default:
		e.logger.Warn("unrecognized routing reply, defaulting to document", "reply", reply)
		return RouteDocument, nil
	}
}

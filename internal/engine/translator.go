package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/omnisource-labs/omni/internal/gemini"
)

// sentinelQuery is what the translator emits when the dataset cannot answer.
// It is also substituted for any generated statement that fails the gate, so
// everything sent to the store is a plain SELECT.
const sentinelQuery = "SELECT 'NO_ANSWER' AS note;"

// translate turns the question into a SQL statement. Anything that does not
// start with SELECT is replaced by the sentinel rather than rejected, so a
// misbehaving model degrades to "no structured answer" instead of an error.
func (e *Engine) translate(ctx context.Context, question string) (string, error) {
	reply, err := e.llm.Complete(ctx, translatorPrompt, []gemini.Message{
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", fmt.Errorf("translating question: %w", err)
	}

	query := stripFences(reply)
	if !strings.HasPrefix(strings.ToLower(query), "select") {
		e.logger.Warn("generated query rejected by select gate", "query", query)
		return sentinelQuery, nil
	}
	return query, nil
}

// stripFences removes a surrounding markdown code fence if the model added
// one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

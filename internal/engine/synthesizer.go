package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omnisource-labs/omni/internal/gemini"
)

// synthesize produces the final answer from the accumulated context blocks,
// the collected citations and the conversation so far. A failed call is
// fatal for the turn.
func (e *Engine) synthesize(ctx context.Context, history []Turn, contexts []string, citations []Citation) (string, error) {
	system := answerPrompt + "\n\nContext:\n"
	if len(contexts) == 0 {
		system += "No external context."
	} else {
		for i, c := range contexts {
			system += fmt.Sprintf("\n--- context block %d ---\n%s\n", i+1, c)
		}
	}
	if len(citations) > 0 {
		if meta, err := json.Marshal(citations); err == nil {
			system += "\n\nCitation metadata:\n" + string(meta)
		}
	}

	messages := make([]gemini.Message, 0, len(history))
	for _, t := range history {
		if t.Role != "user" && t.Role != "assistant" {
			continue
		}
		messages = append(messages, gemini.Message{Role: t.Role, Content: t.Content})
	}

	answer, err := e.llm.Complete(ctx, system, messages)
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}
	return answer, nil
}

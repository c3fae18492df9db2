package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type runState int

const (
	stateRouting runState = iota
	stateDocumentRetrieval
	stateTabularRetrieval
	stateSynthesizing
	stateDone
)

// Engine runs one question through routing, retrieval and synthesis.
type Engine struct {
	llm      CompletionClient
	index    DocumentIndex
	tabular  TabularStore
	recorder Recorder
	logger   *slog.Logger
	topK     int
}

func New(llm CompletionClient, index DocumentIndex, tabular TabularStore, recorder Recorder, logger *slog.Logger, topK int) *Engine {
	return &Engine{
		llm:      llm,
		index:    index,
		tabular:  tabular,
		recorder: recorder,
		logger:   logger,
		topK:     topK,
	}
}

// Answer runs the full pipeline for the latest user turn in history.
//
// Routing and synthesis failures abort the turn. A failed retrieval branch
// only degrades it: the branch contributes nothing and synthesis proceeds
// with whatever context the other branch produced. Context blocks and
// citations are append-only, and when both branches run the document branch
// always contributes first.
func (e *Engine) Answer(ctx context.Context, conversationID string, history []Turn) (Result, error) {
	start := time.Now()

	question, err := lastUserTurn(history)
	if err != nil {
		return Result{}, err
	}

	var (
		decision  RoutingDecision
		contexts  []string
		citations []Citation
		answer    string
	)

	state := stateRouting
	for state != stateDone {
		switch state {
		case stateRouting:
			decision, err = e.route(ctx, question)
			if err != nil {
				return Result{}, err
			}
			e.logger.Info("question routed", "conversation_id", conversationID, "decision", decision)
			if decision == RouteTabular {
				state = stateTabularRetrieval
			} else {
				state = stateDocumentRetrieval
			}

		case stateDocumentRetrieval:
			block, cites, err := e.retrieveDocuments(ctx, question)
			if err != nil {
				e.logger.Warn("document branch failed", "conversation_id", conversationID, "error", err)
			} else if block != "" {
				contexts = append(contexts, block)
				citations = append(citations, cites...)
			}
			if decision == RouteBoth {
				state = stateTabularRetrieval
			} else {
				state = stateSynthesizing
			}

		case stateTabularRetrieval:
			block, cites, err := e.retrieveTabular(ctx, question)
			if err != nil {
				e.logger.Warn("tabular branch failed", "conversation_id", conversationID, "error", err)
			} else if block != "" {
				contexts = append(contexts, block)
				citations = append(citations, cites...)
			}
			state = stateSynthesizing

		case stateSynthesizing:
			answer, err = e.synthesize(ctx, history, contexts, citations)
			if err != nil {
				return Result{}, err
			}
			state = stateDone
		}
	}

	res := Result{
		Answer:       answer,
		RoutedSource: decision,
		Citations:    citations,
	}

	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if e.recorder != nil {
		id, err := e.recorder.Record(ctx, conversationID, question, decision, len(citations) > 0, elapsed)
		if err != nil {
			// The answer is still delivered; only feedback linkage is lost.
			e.logger.Warn("failed to record interaction", "conversation_id", conversationID, "error", err)
		} else {
			res.RecordID = id
		}
	}

	return res, nil
}

func lastUserTurn(history []Turn) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" && strings.TrimSpace(history[i].Content) != "" {
			return history[i].Content, nil
		}
	}
	return "", fmt.Errorf("history contains no user turn")
}

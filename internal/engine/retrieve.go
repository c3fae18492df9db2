package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/omnisource-labs/omni/internal/dataset"
)

const maxTableRows = 50

const noStructuredAnswer = "The dataset has no structured answer for this question."

// retrieveDocuments runs semantic search and formats the hits as a context
// block with one citation per passage. Zero hits is a valid outcome.
func (e *Engine) retrieveDocuments(ctx context.Context, question string) (string, []Citation, error) {
	passages, err := e.index.Search(ctx, question, e.topK)
	if err != nil {
		return "", nil, fmt.Errorf("document retrieval: %w", err)
	}
	if len(passages) == 0 {
		return "", nil, nil
	}

	blocks := make([]string, len(passages))
	citations := make([]Citation, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("[%s, page %d]\n%s", p.FileName, p.Page, p.Content)
		citations[i] = Citation{
			SourceType: "document",
			FileName:   p.FileName,
			Page:       p.Page,
		}
	}
	return strings.Join(blocks, "\n\n"), citations, nil
}

// retrieveTabular translates the question to SQL, executes it and renders
// the result as a context block. A sentinel result produces a fixed message
// and no citation.
func (e *Engine) retrieveTabular(ctx context.Context, question string) (string, []Citation, error) {
	query, err := e.translate(ctx, question)
	if err != nil {
		return "", nil, err
	}

	res, err := e.tabular.Execute(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("tabular retrieval: %w", err)
	}
	if isSentinel(res) {
		return noStructuredAnswer, nil, nil
	}

	block := "Structured result from the dataset (table " + dataset.Table + "):\n" + renderTable(res)
	citation := Citation{
		SourceType: "tabular",
		Table:      dataset.Table,
		Note:       query,
	}
	return block, []Citation{citation}, nil
}

func isSentinel(res dataset.Result) bool {
	return len(res.Rows) == 1 && res.Rows[0]["note"] == "NO_ANSWER"
}

// renderTable produces a pipe-separated rendering capped at maxTableRows.
func renderTable(res dataset.Result) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(res.Columns, " | "))
	sb.WriteByte('\n')

	n := len(res.Rows)
	if n > maxTableRows {
		n = maxTableRows
	}
	for _, row := range res.Rows[:n] {
		cells := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			cells[i] = formatValue(row[col])
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteByte('\n')
	}
	if len(res.Rows) > maxTableRows {
		fmt.Fprintf(&sb, "... (%d more rows)\n", len(res.Rows)-maxTableRows)
	}
	return sb.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", x), "0"), ".")
	default:
		return fmt.Sprint(v)
	}
}

package corpus

import "strings"

const (
	chunkSize    = 1200
	chunkOverlap = 200
)

// SplitPages splits document text into pages. Pages are separated by form
// feed characters, the convention used by most text-extraction tools.
func SplitPages(text string) []string {
	raw := strings.Split(text, "\f")
	pages := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			pages = append(pages, p)
		}
	}
	return pages
}

// SplitText splits page text into overlapping chunks of roughly chunkSize
// runes. Chunks prefer to break on whitespace so words stay intact.
func SplitText(text string) []string {
	return splitText(text, chunkSize, chunkOverlap)
}

func splitText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		// Walk back to the nearest whitespace so we don't cut mid-word.
		cut := end
		for cut > start+size/2 && !isSpace(runes[cut-1]) {
			cut--
		}
		if cut == start+size/2 {
			cut = end
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		// Resume on a word boundary so the overlap never starts mid-word.
		for next < cut && !isSpace(runes[next]) {
			next++
		}
		start = next
	}
	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

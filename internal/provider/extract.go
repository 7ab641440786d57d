package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

const rawSnippetLimit = 500

// ExtractJSON pulls a structured value out of a possibly-decorated model
// reply: first a strict parse of the whole text, then the contents of a
// fenced code block. Anything else is ErrMalformedResponse with the raw text
// attached for diagnostics.
func ExtractJSON(raw string) (Response, error) {
	trimmed := strings.TrimSpace(raw)

	var result Response
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return result, nil
	}

	if fenced, ok := fencedBlock(trimmed); ok {
		if err := json.Unmarshal([]byte(fenced), &result); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, snippet(raw))
}

// fencedBlock returns the contents of the first ```json (or bare ```) fence.
func fencedBlock(s string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(s, marker)
		if start < 0 {
			continue
		}
		rest := s[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}

func snippet(raw string) string {
	if len(raw) > rawSnippetLimit {
		return raw[:rawSnippetLimit] + "..."
	}
	return raw
}

package memory

import (
	"context"
	"fmt"
	"strings"

	"recurrent-agent/internal/provider"
)

const answerSystemPrompt = "You are a helpful assistant. Use the provided context to answer the query."

const defaultTopK = 5

// Answer retrieves the stored results closest to the query and asks the
// gateway to answer from them. Returns the structured answer and the source
// passages it was grounded on.
func (m *Memory) Answer(ctx context.Context, gateway provider.Gateway, query string) (provider.Response, string, error) {
	results, err := m.Search(ctx, query, defaultTopK)
	if err != nil {
		return nil, "", err
	}
	if len(results) == 0 {
		return nil, "", fmt.Errorf("memory is empty, nothing to answer from")
	}

	var source strings.Builder
	for _, r := range results {
		source.WriteString(r.Content + "\n\n")
	}

	userPrompt := fmt.Sprintf("Context:\n%s\nQuery: %s", source.String(), query)
	response, err := gateway.Generate(ctx, answerSystemPrompt, userPrompt, "")
	if err != nil {
		return nil, "", err
	}
	return response, source.String(), nil
}

package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"recurrent-agent/internal/auditlog"
)

// Appended to every user prompt so the reply stays machine-parseable even on
// backends without a native JSON mode.
const jsonInstruction = "Respond ONLY with a valid JSON object or array. Do not include anything else."

// langchainGateway implements Gateway over a langchaingo llms.Model.
type langchainGateway struct {
	name        string
	model       llms.Model
	temperature float64
	maxTokens   int
	jsonMode    bool
	audit       *auditlog.Logger
}

func (g *langchainGateway) Name() string {
	return g.name
}

func (g *langchainGateway) Generate(ctx context.Context, systemPrompt, userPrompt, chunk string) (Response, error) {
	userContent := fmt.Sprintf("%s\n\n%s\n\n%s", userPrompt, chunk, jsonInstruction)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userContent),
	}

	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}
	if g.jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrProvider)
	}

	raw := resp.Choices[0].Content
	result, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	if g.audit != nil {
		if aerr := g.audit.Append(g.name, systemPrompt, userPrompt, chunk, result); aerr != nil {
			// audit records are for humans, never for control flow
			log.Warn().Err(aerr).Msg("Failed to write audit record")
		}
	}
	return result, nil
}

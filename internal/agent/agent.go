package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"recurrent-agent/internal/chunker"
	"recurrent-agent/internal/config"
	"recurrent-agent/internal/loader"
	"recurrent-agent/internal/provider"
	"recurrent-agent/internal/schema"
)

// Result is the accepted response for one chunk. Failed chunks leave an
// index gap in the result list instead of aborting the run.
type Result struct {
	ChunkIndex int               `json:"chunk_index"`
	Response   provider.Response `json:"response"`
}

// Report is what a run hands back: the ordered results plus enough counters
// for the caller to judge completeness.
type Report struct {
	RunID     string   `json:"run_id"`
	Results   []Result `json:"results"`
	Chunks    int      `json:"chunks"`
	Failed    int      `json:"failed"`
	Empty     int      `json:"empty"`
	Cancelled bool     `json:"cancelled"`
}

// ResultSink archives accepted results after a run. Sink failures are
// logged, never fatal.
type ResultSink interface {
	StoreResults(ctx context.Context, runID string, results []Result) error
}

// Agent drives a full run: load, chunk, process sequentially with
// context-carry, persist.
type Agent struct {
	cfg       *config.Config
	runID     string
	processor *Processor
	sinks     []ResultSink
}

// New wires an agent from its collaborators. All dependencies are explicit;
// there is no process-wide default provider.
func New(cfg *config.Config, runID string, gateway provider.Gateway, validator *schema.Validator, sinks ...ResultSink) *Agent {
	return &Agent{
		cfg:       cfg,
		runID:     runID,
		processor: NewProcessor(gateway, validator, cfg.RetryBudget(), time.Duration(cfg.LLMProvider.Timeout)*time.Second),
		sinks:     sinks,
	}
}

// Run processes the configured input end to end. Configuration and input
// errors abort before any chunk is touched; per-chunk failures only dent the
// report. Cancellation between chunks stops the loop and persists whatever
// has accumulated.
func (a *Agent) Run(ctx context.Context) (*Report, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().Str("file", a.cfg.FilePath).Msg("Reading input")
	text, err := loader.Load(a.cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading input: %w", err)
	}

	chunks := chunker.Split(text, a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	totalSize := len([]rune(text))
	log.Info().Int("chunks", len(chunks)).Int("size", totalSize).Msg("Split input")

	report := &Report{RunID: a.runID, Chunks: len(chunks)}

	// The loop is strictly sequential: each prompt depends on the previous
	// accepted response.
	var runContext provider.Response
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			log.Warn().Int("chunk", chunk.Index).Msg("Run cancelled, stopping before this chunk")
			report.Cancelled = true
			break
		}

		log.Info().Msgf("Processing chunk %d/%d", chunk.Index+1, len(chunks))
		userPrompt := buildUserPrompt(a.cfg.UserPrompt, runContext, totalSize)

		response, ok := a.processor.Process(ctx, chunk, a.cfg.SystemPrompt, userPrompt)
		if !ok {
			// a user abort mid-chunk is not a chunk failure
			if ctx.Err() != nil {
				log.Warn().Int("chunk", chunk.Index).Msg("Run cancelled mid-chunk")
				report.Cancelled = true
				break
			}
			// context stays as it was; the next chunk sees the last
			// accepted state
			report.Failed++
			continue
		}

		if isEmptyStructure(response) {
			log.Info().Int("chunk", chunk.Index).Msg("Chunk returned empty result")
			report.Empty++
			continue
		}

		report.Results = append(report.Results, Result{ChunkIndex: chunk.Index, Response: response})
		runContext = response
	}

	if err := a.persist(ctx, report); err != nil {
		return report, err
	}

	log.Info().Int("results", len(report.Results)).Int("failed", report.Failed).
		Int("empty", report.Empty).Bool("cancelled", report.Cancelled).
		Msg("Run finished")
	return report, nil
}

// persist writes the result list to output_file (fatal on failure) and hands
// it to the optional sinks (best effort).
func (a *Agent) persist(ctx context.Context, report *Report) error {
	if a.cfg.OutputFile != "" {
		results := report.Results
		if results == nil {
			results = []Result{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		if err := os.WriteFile(a.cfg.OutputFile, data, 0o644); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		log.Info().Str("path", a.cfg.OutputFile).Msg("Saved results")
	}

	for _, sink := range a.sinks {
		if err := sink.StoreResults(ctx, a.runID, report.Results); err != nil {
			log.Error().Err(err).Msg("Result sink failed")
		}
	}
	return nil
}

// isEmptyStructure reports "nothing new to report" responses: null, {} or [].
func isEmptyStructure(response provider.Response) bool {
	switch v := response.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

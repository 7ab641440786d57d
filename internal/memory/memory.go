package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"recurrent-agent/internal/agent"
	"recurrent-agent/internal/config"
	"recurrent-agent/internal/helper"
)

// Memory archives accepted chunk responses in a chromem-go collection so
// past runs stay searchable. It implements agent.ResultSink.
type Memory struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// New opens (or creates) the vector store and its collection. Embeddings
// come from the configured embed_llm backend.
func New(cfg *config.MemoryConfig) (*Memory, error) {
	embedFunc, err := newEmbeddingFunc(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	var db *chromem.DB
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		if err := helper.CreateFolder(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("creating memory dir: %w", err)
		}
		db, err = chromem.NewPersistentDB(cfg.DBPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Memory{db: db, collection: collection}, nil
}

// newEmbeddingFunc adapts a langchaingo embedder to chromem's interface.
func newEmbeddingFunc(cfg *config.LLMConfig) (chromem.EmbeddingFunc, error) {
	apiKey, err := config.ResolveAPIKey(cfg.APIKey)
	if err != nil {
		return nil, err
	}

	var embedder *embeddings.EmbedderImpl
	switch strings.ToLower(cfg.Type) {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("initializing embed llm: %w", err)
		}
		embedder, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("initializing embed llm: %w", err)
		}
		embedder, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported embed_llm type: %s", cfg.Type)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}, nil
}

// StoreResults embeds every accepted response and adds it to the collection,
// keyed by run id and chunk index.
func (m *Memory) StoreResults(ctx context.Context, runID string, results []agent.Result) error {
	if len(results) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(results))
	for _, r := range results {
		content, err := json.Marshal(r.Response)
		if err != nil {
			log.Warn().Err(err).Int("chunk", r.ChunkIndex).Msg("Skipping unencodable result")
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d", runID, r.ChunkIndex),
			Content: string(content),
			Metadata: map[string]string{
				"run_id":      runID,
				"chunk_index": strconv.Itoa(r.ChunkIndex),
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}

	log.Info().Int("documents", len(docs)).Msg("Adding results to memory")
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search returns the top-k stored results most similar to the query.
func (m *Memory) Search(ctx context.Context, query string, k int) ([]chromem.Result, error) {
	if m.collection.Count() == 0 {
		return nil, nil
	}
	if k > m.collection.Count() {
		k = m.collection.Count()
	}
	results, err := m.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory: %v", err)
	}
	return results, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"recurrent-agent/internal/agent"
	"recurrent-agent/internal/auditlog"
	"recurrent-agent/internal/chunker"
	"recurrent-agent/internal/config"
	"recurrent-agent/internal/db"
	"recurrent-agent/internal/helper"
	"recurrent-agent/internal/loader"
	"recurrent-agent/internal/memory"
	"recurrent-agent/internal/provider"
	"recurrent-agent/internal/schema"
)

const auditLogDir = "./logs"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the configuration file (JSON or YAML)")
	query := flag.String("query", "", "Search past run results in memory instead of processing")
	dryRun := flag.Bool("dry-run", false, "Chunk the input and print the chunks, no LLM calls")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *dryRun:
		dryRunChunks(cfg)
	case *query != "":
		answerFromMemory(ctx, cfg, *query)
	default:
		runAgent(ctx, cfg)
	}
}

func runAgent(ctx context.Context, cfg *config.Config) {
	runID, err := helper.GenerateRunID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating run id")
	}
	log.Info().Str("run_id", runID).Msg("Starting run")

	audit, err := auditlog.New(auditLogDir, runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating audit log")
	}

	gateway, err := provider.New(&cfg.LLMProvider, audit)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm provider")
	}

	validator, err := schema.New(cfg.OutputSchema)
	if err != nil {
		log.Fatal().Err(err).Msg("Error compiling output schema")
	}

	var sinks []agent.ResultSink

	if cfg.Database != nil {
		sqldb, err := db.ConnectDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		store := db.NewStore(db.NewDB(sqldb, cfg.Database.Debug))
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		sinks = append(sinks, store)
	}

	if cfg.Memory != nil {
		mem, err := memory.New(cfg.Memory)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing memory")
		}
		sinks = append(sinks, mem)
	}

	report, err := agent.New(cfg, runID, gateway, validator, sinks...).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	// chunk failures degrade the output but the run still completed
	log.Info().Int("chunks", report.Chunks).Int("results", len(report.Results)).
		Int("failed", report.Failed).Int("empty", report.Empty).
		Msg("Done")
	if report.Cancelled {
		log.Warn().Msg("Run was cancelled; results are partial")
	}
}

func dryRunChunks(cfg *config.Config) {
	text, err := loader.Load(cfg.FilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading input")
	}

	chunks := chunker.Split(text, cfg.ChunkSize, cfg.ChunkOverlap)
	log.Info().Int("chunks", len(chunks)).Int("size", len([]rune(text))).Msg("Split input")
	helper.PrettyPrint(chunks)
}

func answerFromMemory(ctx context.Context, cfg *config.Config, query string) {
	if cfg.Memory == nil {
		log.Fatal().Msg("Query mode requires a memory section in the configuration")
	}

	mem, err := memory.New(cfg.Memory)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing memory")
	}

	gateway, err := provider.New(&cfg.LLMProvider, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm provider")
	}

	answer, source, err := mem.Answer(ctx, gateway, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying memory")
	}

	log.Info().Msg("Query:")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source:")
	fmt.Printf("%s\n", source)

	log.Info().Msg("Answer:")
	helper.PrettyPrint(answer)
}

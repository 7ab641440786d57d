package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"recurrent-agent/internal/agent"
	"recurrent-agent/internal/config"
)

// RunResult is one archived chunk response.
type RunResult struct {
	bun.BaseModel `bun:"table:run_results,alias:r"`
	ID            int64     `bun:"id,pk,autoincrement"`
	RunID         string    `bun:"run_id,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
	Response      string    `bun:"response,notnull,type:jsonb"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ConnectDB opens the Postgres connection from configuration.
func ConnectDB(cfg *config.DBConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

// NewDB wraps the connection in bun; debug adds verbose query logging.
func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store archives run results to Postgres. It implements agent.ResultSink.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Init creates the run_results table if needed.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*RunResult)(nil)).IfNotExists().Exec(ctx)
	return err
}

// StoreResults inserts the accepted responses for a run in one batch.
func (s *Store) StoreResults(ctx context.Context, runID string, results []agent.Result) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]RunResult, 0, len(results))
	for _, r := range results {
		response, err := json.Marshal(r.Response)
		if err != nil {
			return fmt.Errorf("encoding result %d: %w", r.ChunkIndex, err)
		}
		rows = append(rows, RunResult{
			RunID:      runID,
			ChunkIndex: r.ChunkIndex,
			Response:   string(response),
		})
	}

	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// ListResults returns a run's archived responses in chunk order.
func (s *Store) ListResults(ctx context.Context, runID string) ([]RunResult, error) {
	var rows []RunResult
	err := s.db.NewSelect().
		Model(&rows).
		Where("run_id = ?", runID).
		Order("chunk_index ASC").
		Scan(ctx)
	return rows, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

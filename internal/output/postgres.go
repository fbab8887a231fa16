package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode"

	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execer is the part of a pgx pool the output writes through
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresOutput struct {
	ctx  context.Context
	db   execer
	pool *pgxpool.Pool
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fact_step_metrics (
        run_id TEXT NOT NULL,
        step BIGINT NOT NULL,
        "timestamp" BIGINT NOT NULL,
        event_type TEXT NOT NULL,
        clean_percentage DOUBLE PRECISION NOT NULL,
        total_moves BIGINT NOT NULL,
        clean_spots BIGINT NOT NULL,
        dirty_spots BIGINT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS fact_agent_position (
        run_id TEXT NOT NULL,
        step BIGINT NOT NULL,
        "timestamp" BIGINT NOT NULL,
        event_type TEXT NOT NULL,
        agent_id BIGINT NOT NULL,
        kind TEXT NOT NULL,
        x BIGINT NOT NULL,
        y BIGINT NOT NULL,
        clean BOOLEAN NOT NULL,
        vacuuming BOOLEAN NOT NULL,
        moves BIGINT NOT NULL,
        name TEXT
    )`,
	`CREATE TABLE IF NOT EXISTS fact_spot_cleaned (
        run_id TEXT NOT NULL,
        step BIGINT NOT NULL,
        "timestamp" BIGINT NOT NULL,
        event_type TEXT NOT NULL,
        spot_id BIGINT NOT NULL,
        cleaner_id BIGINT NOT NULL,
        x BIGINT NOT NULL,
        y BIGINT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS fact_run_summary (
        run_id TEXT NOT NULL,
        step BIGINT NOT NULL,
        "timestamp" BIGINT NOT NULL,
        event_type TEXT NOT NULL,
        seed BIGINT NOT NULL,
        robots BIGINT NOT NULL,
        dirty_cells BIGINT NOT NULL,
        width BIGINT NOT NULL,
        height BIGINT NOT NULL,
        torus BOOLEAN NOT NULL,
        max_steps BIGINT NOT NULL,
        clean_percentage DOUBLE PRECISION NOT NULL,
        total_moves BIGINT NOT NULL,
        stop_reason TEXT NOT NULL,
        elapsed_ms BIGINT NOT NULL
    )`,
}

// NewPostgresOutput connects to the database and creates the event tables
// when they are missing.
func NewPostgresOutput(ctx context.Context, databaseURL string) (*PostgresOutput, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	p := &PostgresOutput{ctx: ctx, db: pool, pool: pool}
	if err := p.ensureSchema(); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func newPostgresOutputWith(ctx context.Context, db execer) *PostgresOutput {
	return &PostgresOutput{ctx: ctx, db: db}
}

func (p *PostgresOutput) ensureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := p.db.Exec(p.ctx, stmt); err != nil {
			return fmt.Errorf("error creating event tables: %w", err)
		}
	}
	return nil
}

func (p *PostgresOutput) WriteMessage(topic string, msg []byte) error {
	table := topicToTable(topic)
	if table == "" {
		return fmt.Errorf("no table mapped for topic %s", topic)
	}

	event, err := decodeEvent(msg)
	if err != nil {
		return fmt.Errorf("error decoding %s event: %w", topic, err)
	}

	columns, values, placeholders := buildInsertComponents(event)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, placeholders)
	if _, err := p.db.Exec(p.ctx, query, values...); err != nil {
		log.Printf("Error inserting into %s: %v", table, err)
		return fmt.Errorf("error inserting into %s: %w", table, err)
	}
	return nil
}

func (p *PostgresOutput) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

func topicToTable(topic string) string {
	tableMap := map[string]string{
		models.TopicStepMetrics:    "fact_step_metrics",
		models.TopicAgentPositions: "fact_agent_position",
		models.TopicSpotCleaned:    "fact_spot_cleaned",
		models.TopicRunSummary:     "fact_run_summary",
	}
	return tableMap[topic]
}

// decodeEvent keeps integers as integers so BIGINT columns accept them
func decodeEvent(msg []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var event map[string]interface{}
	if err := dec.Decode(&event); err != nil {
		return nil, err
	}
	return event, nil
}

func buildInsertComponents(event map[string]interface{}) (string, []interface{}, string) {
	// sorted keys keep the generated statement stable
	keys := make([]string, 0, len(event))
	for k := range event {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]string, 0, len(keys))
	values := make([]interface{}, 0, len(keys))
	placeholders := make([]string, 0, len(keys))

	for i, key := range keys {
		switch v := event[key].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				values = append(values, n)
			} else if f, err := v.Float64(); err == nil {
				values = append(values, f)
			} else {
				values = append(values, v.String())
			}
		case map[string]interface{}, []interface{}:
			jsonBytes, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling JSON for key %s: %v", key, err)
				values = append(values, nil)
				break
			}
			values = append(values, string(jsonBytes))
		default:
			values = append(values, v)
		}

		columns = append(columns, pgx.Identifier{snakeCaseKey(key)}.Sanitize())
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	return strings.Join(columns, ", "),
		values,
		strings.Join(placeholders, ", ")
}

func snakeCaseKey(key string) string {
	var result strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			result.WriteRune('_')
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}

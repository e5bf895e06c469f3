package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/swdee/go-facewatch"
)

// Record is a single completed verification as stored in the audit log
type Record struct {
	JobID       string
	Source      string
	FrameIndex  uint64
	Outcome     string
	Verified    bool
	Distance    *float64
	Latency     time.Duration
	Error       *string
	CompletedAt time.Time
}

// NewRecord converts a verdict into an audit record for the given source
func NewRecord(source string, v facewatch.Verdict) Record {

	rec := Record{
		JobID:       v.JobID,
		Source:      source,
		FrameIndex:  v.FrameIndex,
		Outcome:     v.Outcome.String(),
		Verified:    v.Verified,
		Latency:     v.Latency,
		CompletedAt: v.CompletedAt,
	}

	if v.HasDistance {
		d := v.Distance
		rec.Distance = &d
	}

	if v.Err != nil {
		msg := v.Err.Error()
		rec.Error = &msg
	}

	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	return rec
}

// Store writes verification verdicts to PostgreSQL
type Store struct {
	pool   *pgxpool.Pool
	source string
}

// New connects to the database and ensures the schema is initialized.
// Source identifies the capture device in every record written.
func New(ctx context.Context, connString string, source string) (*Store, error) {

	pool, err := pgxpool.New(ctx, connString)

	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{pool: pool, source: source}, nil
}

// initSchema creates the verification table if it does not exist
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS verifications (
			job_id       UUID PRIMARY KEY,
			source       TEXT NOT NULL,
			frame_index  BIGINT NOT NULL,
			outcome      TEXT NOT NULL,
			verified     BOOLEAN NOT NULL,
			distance     DOUBLE PRECISION,
			latency_ms   DOUBLE PRECISION NOT NULL,
			error        TEXT,
			completed_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS verifications_completed_at_idx ON verifications (completed_at);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Record saves a completed verdict
func (s *Store) Record(ctx context.Context, v facewatch.Verdict) error {

	rec := NewRecord(s.source, v)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO verifications (job_id, source, frame_index, outcome, verified,
			distance, latency_ms, error, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO NOTHING
	`, rec.JobID, rec.Source, int64(rec.FrameIndex), rec.Outcome, rec.Verified,
		rec.Distance, float64(rec.Latency)/float64(time.Millisecond), rec.Error,
		rec.CompletedAt)

	if err != nil {
		return fmt.Errorf("failed to insert verification %s: %w", rec.JobID, err)
	}

	return nil
}

// Recent returns up to limit of the most recently completed verifications,
// newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {

	rows, err := s.pool.Query(ctx, `
		SELECT job_id::text, source, frame_index, outcome, verified, distance,
			latency_ms, error, completed_at
		FROM verifications
		ORDER BY completed_at DESC
		LIMIT $1
	`, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to query verifications: %w", err)
	}
	defer rows.Close()

	var out []Record

	for rows.Next() {
		var rec Record
		var frameIndex int64
		var latencyMS float64

		if err := rows.Scan(&rec.JobID, &rec.Source, &frameIndex, &rec.Outcome,
			&rec.Verified, &rec.Distance, &latencyMS, &rec.Error, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}

		rec.FrameIndex = uint64(frameIndex)
		rec.Latency = time.Duration(latencyMS * float64(time.Millisecond))
		out = append(out, rec)
	}

	return out, rows.Err()
}

// Hook returns a scheduler verdict hook recording each verdict, bounding
// every insert by timeout.  Failures are logged and never reach the
// pipeline.
func (s *Store) Hook(timeout time.Duration) func(facewatch.Verdict) {
	return func(v facewatch.Verdict) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.Record(ctx, v); err != nil {
			log.Printf("Error recording verdict: %v", err)
		}
	}
}

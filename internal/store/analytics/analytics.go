package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ingestd/internal/models"
	"ingestd/internal/store"
)

// StoreImpl implements store.AnalyticsStore using PostgreSQL. Two tables
// hold a job's analytics slice: ingest_events (one row per stage outcome)
// and ingest_documents (one row per document tracked for the job).
type StoreImpl struct {
	db *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, errors.New("analytics store DSN cannot be empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse analytics DSN: %w", err)
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping analytics store: %w", err)
	}
	return &StoreImpl{db: dbpool}, nil
}

func (s *StoreImpl) Name() string { return "analytics" }

func (s *StoreImpl) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

func (s *StoreImpl) Ping(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotInitialized
	}
	return s.db.Ping(ctx)
}

func (s *StoreImpl) RecordEvent(ctx context.Context, event *models.IngestEvent) error {
	query := `INSERT INTO ingest_events (job_id, stage, status, detail)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := s.db.QueryRow(ctx, query, event.JobID, event.Stage, event.Status, event.Detail).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("record ingest event: %w", err)
	}
	return nil
}

func (s *StoreImpl) UpsertDocument(ctx context.Context, doc *models.IngestDocument) error {
	query := `INSERT INTO ingest_documents (job_id, document_id, title, pages, chunks, status, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())
	          ON CONFLICT (job_id, document_id) DO UPDATE
	          SET title = EXCLUDED.title, pages = EXCLUDED.pages,
	              chunks = EXCLUDED.chunks, status = EXCLUDED.status, updated_at = NOW()`
	_, err := s.db.Exec(ctx, query, doc.JobID, doc.DocumentID, doc.Title, doc.Pages, doc.Chunks, doc.Status)
	if err != nil {
		return fmt.Errorf("upsert ingest document: %w", err)
	}
	return nil
}

// DeleteJobData removes the job's rows from both analytics tables and
// returns the summed row count.
func (s *StoreImpl) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	deleted := 0
	evTag, err := s.db.Exec(ctx, `DELETE FROM ingest_events WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete ingest events for job %s: %w", jobID, err)
	}
	deleted += int(evTag.RowsAffected())

	docTag, err := s.db.Exec(ctx, `DELETE FROM ingest_documents WHERE job_id = $1`, jobID)
	if err != nil {
		return deleted, fmt.Errorf("delete ingest documents for job %s: %w", jobID, err)
	}
	deleted += int(docTag.RowsAffected())
	return deleted, nil
}

func (s *StoreImpl) CountJobData(ctx context.Context, jobID string) (int, error) {
	var count int
	query := `SELECT (SELECT COUNT(*) FROM ingest_events WHERE job_id = $1)
	               + (SELECT COUNT(*) FROM ingest_documents WHERE job_id = $1)`
	if err := s.db.QueryRow(ctx, query, jobID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count analytics rows for job %s: %w", jobID, err)
	}
	return count, nil
}

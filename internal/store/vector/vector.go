package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"

	"ingestd/internal/models"
	"ingestd/internal/store"
)

// StoreImpl implements store.VectorStore on a PostgreSQL pgvector table.
type StoreImpl struct {
	db *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, fmt.Errorf("vector store DSN cannot be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector store DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping vector store: %w", err)
	}
	log.Println("Connected to PostgreSQL vector store.")
	return &StoreImpl{db: pool}, nil
}

func (vs *StoreImpl) Name() string { return "vector" }

func (vs *StoreImpl) Close() error {
	if vs.db != nil {
		vs.db.Close()
	}
	return nil
}

func (vs *StoreImpl) Ping(ctx context.Context) error {
	if vs.db == nil {
		return store.ErrNotInitialized
	}
	return vs.db.Ping(ctx)
}

func (vs *StoreImpl) AddChunkEmbedding(ctx context.Context, entry *models.ChunkEmbedding) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `INSERT INTO chunk_embeddings (id, job_id, document_id, chunk_index, chunk_text, vector, metadata)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`
	err := vs.db.QueryRow(ctx, query,
		entry.ID, entry.JobID, entry.DocumentID, entry.ChunkIndex, entry.ChunkText,
		pgvector.NewVector(entry.Vector.Slice()), entry.Metadata,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("add chunk embedding: %w", err)
	}
	return nil
}

// DeleteJobData removes every embedding written for jobID. Matching zero
// rows is a normal outcome, not an error.
func (vs *StoreImpl) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	tag, err := vs.db.Exec(ctx, `DELETE FROM chunk_embeddings WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete embeddings for job %s: %w", jobID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (vs *StoreImpl) CountJobData(ctx context.Context, jobID string) (int, error) {
	var count int
	err := vs.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunk_embeddings WHERE job_id = $1`, jobID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings for job %s: %w", jobID, err)
	}
	return count, nil
}

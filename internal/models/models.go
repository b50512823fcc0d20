package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DocumentPage is one page of a submitted document. Either ImageURL or Text
// is set; when Text is present the OCR stage is skipped for that page.
type DocumentPage struct {
	Number   int    `json:"number"`
	ImageURL string `json:"image_url,omitempty"`
	Text     string `json:"text,omitempty"`
}

// IngestRequest is the payload of an ingestion job.
type IngestRequest struct {
	JobID      string         `json:"job_id"`
	DocumentID string         `json:"document_id"`
	Title      string         `json:"title"`
	Pages      []DocumentPage `json:"pages"`
}

// ChunkEmbedding is one embedded chunk of OCR'd text stored in the vector index.
type ChunkEmbedding struct {
	ID         uuid.UUID       `db:"id"`
	JobID      string          `db:"job_id"`
	DocumentID string          `db:"document_id"`
	ChunkIndex int             `db:"chunk_index"`
	ChunkText  string          `db:"chunk_text"`
	Vector     pgvector.Vector `db:"vector"`
	Metadata   json.RawMessage `db:"metadata"`
	CreatedAt  time.Time       `db:"created_at"`
}

// IngestEvent is one analytics record of a pipeline stage outcome.
type IngestEvent struct {
	ID        int64           `db:"id"`
	JobID     string          `db:"job_id"`
	Stage     string          `db:"stage"`
	Status    string          `db:"status"`
	Detail    json.RawMessage `db:"detail"`
	CreatedAt time.Time       `db:"created_at"`
}

// IngestDocument is the analytics-store row tracking one document of a job.
type IngestDocument struct {
	JobID      string    `db:"job_id"`
	DocumentID string    `db:"document_id"`
	Title      string    `db:"title"`
	Pages      int       `db:"pages"`
	Chunks     int       `db:"chunks"`
	Status     string    `db:"status"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// ServiceCleanup is the per-backend slice of a CleanupResult.
type ServiceCleanup struct {
	Deleted int     `json:"deleted"`
	Error   *string `json:"error"`
}

// CleanupResult aggregates a best-effort cleanup of one job's data across
// all configured backends. Success is true only when no backend errored.
type CleanupResult struct {
	JobID        string                    `json:"job_id"`
	Success      bool                      `json:"success"`
	TotalDeleted int                       `json:"total_deleted"`
	Services     map[string]ServiceCleanup `json:"services"`
	Errors       []string                  `json:"errors"`
}

// DataSummary is the read-only counterpart of CleanupResult.
type DataSummary struct {
	JobID      string         `json:"job_id"`
	Services   map[string]int `json:"services"`
	TotalItems int            `json:"total_items"`
}

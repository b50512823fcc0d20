package store

import (
	"context"

	"github.com/hibiken/asynq"

	"ingestd/internal/models"
)

// --- Job Client ---

type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueIngestJob(ctx context.Context, req models.IngestRequest) error
	Close() error
}

// --- Job Data Store ---

// JobDataStore is the slice of a backend the cleanup coordinator consumes:
// every backend holds a disjoint, job-scoped data set that can be counted
// and deleted by job id. Matching zero items is a normal, successful outcome.
type JobDataStore interface {
	Name() string
	DeleteJobData(ctx context.Context, jobID string) (int, error)
	CountJobData(ctx context.Context, jobID string) (int, error)
}

// --- Vector Store ---

type VectorStore interface {
	JobDataStore
	AddChunkEmbedding(ctx context.Context, entry *models.ChunkEmbedding) error
	Ping(ctx context.Context) error
	Close() error
}

// --- Object Store ---

type ObjectStore interface {
	JobDataStore
	PutPage(ctx context.Context, jobID string, page int, data []byte) error
	GetPage(ctx context.Context, jobID string, page int) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// --- Analytics Store ---

type AnalyticsStore interface {
	JobDataStore
	RecordEvent(ctx context.Context, event *models.IngestEvent) error
	UpsertDocument(ctx context.Context, doc *models.IngestDocument) error
	Ping(ctx context.Context) error
	Close() error
}

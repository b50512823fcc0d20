package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"ingestd/internal/models"
	"ingestd/internal/tasks"
)

// AsynqJobClient enqueues ingestion tasks onto the Redis-backed queue.
var _ JobClient = (*AsynqJobClient)(nil)

type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(redisAddr, password string, db int) (*AsynqJobClient, error) {
	if redisAddr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
	return &AsynqJobClient{client: cli}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("asynq client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		log.Errorf("Failed to enqueue task type %q: %v", task.Type(), err)
		return nil, err
	}
	log.Debugf("Enqueued task type %q id=%s queue=%s", task.Type(), info.ID, info.Queue)
	return info, nil
}

// EnqueueIngestJob enqueues the ingestion pipeline for one document,
// correlated everywhere by req.JobID.
func (jc *AsynqJobClient) EnqueueIngestJob(ctx context.Context, req models.IngestRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal ingest payload for job %s: %w", req.JobID, err)
	}
	task := asynq.NewTask(tasks.TypeIngestDocument, payload)
	if _, err := jc.Enqueue(ctx, task, asynq.Queue("ingest")); err != nil {
		return fmt.Errorf("enqueue ingest job %s: %w", req.JobID, err)
	}
	return nil
}

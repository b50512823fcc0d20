package object

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"ingestd/internal/store"
)

const keyPrefix = "ingestd:job:"

// StoreImpl implements store.ObjectStore on Redis. Page artifacts live at
// ingestd:job:<job>:page:<n>; the set ingestd:job:<job>:pages indexes the
// page numbers written for the job so per-job delete/count stay O(pages).
type StoreImpl struct {
	client *redis.Client
}

func NewStore(ctx context.Context, addr, password string, db int) (*StoreImpl, error) {
	if addr == "" {
		return nil, fmt.Errorf("object store address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping object store: %w", err)
	}
	log.Println("Connected to Redis object store.")
	return &StoreImpl{client: client}, nil
}

func (os *StoreImpl) Name() string { return "object" }

func (os *StoreImpl) Close() error {
	if os.client != nil {
		return os.client.Close()
	}
	return nil
}

func (os *StoreImpl) Ping(ctx context.Context) error {
	if os.client == nil {
		return store.ErrNotInitialized
	}
	return os.client.Ping(ctx).Err()
}

func pageKey(jobID string, page int) string {
	return keyPrefix + jobID + ":page:" + strconv.Itoa(page)
}

func indexKey(jobID string) string {
	return keyPrefix + jobID + ":pages"
}

func (os *StoreImpl) PutPage(ctx context.Context, jobID string, page int, data []byte) error {
	pipe := os.client.TxPipeline()
	pipe.Set(ctx, pageKey(jobID, page), data, 0)
	pipe.SAdd(ctx, indexKey(jobID), page)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put page %d for job %s: %w", page, jobID, err)
	}
	return nil
}

func (os *StoreImpl) GetPage(ctx context.Context, jobID string, page int) ([]byte, error) {
	data, err := os.client.Get(ctx, pageKey(jobID, page)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get page %d for job %s: %w", page, jobID, err)
	}
	return data, nil
}

// DeleteJobData removes every page artifact written for jobID, returning
// the number of pages deleted. An absent index set means zero items.
func (os *StoreImpl) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	pages, err := os.client.SMembers(ctx, indexKey(jobID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list pages for job %s: %w", jobID, err)
	}
	if len(pages) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(pages)+1)
	for _, p := range pages {
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			log.Warnf("object store: skipping malformed page index %q for job %s", p, jobID)
			continue
		}
		keys = append(keys, pageKey(jobID, n))
	}
	keys = append(keys, indexKey(jobID))
	if err := os.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete pages for job %s: %w", jobID, err)
	}
	return len(pages), nil
}

func (os *StoreImpl) CountJobData(ctx context.Context, jobID string) (int, error) {
	count, err := os.client.SCard(ctx, indexKey(jobID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count pages for job %s: %w", jobID, err)
	}
	return int(count), nil
}

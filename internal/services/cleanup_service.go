package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"ingestd/internal/models"
	"ingestd/internal/store"
)

// CleanupService fans a delete or count out across every configured
// backend holding a slice of a job's data. Each backend call is isolated:
// one backend failing never stops the others, and the aggregate result
// records per-backend outcomes plus every error in backend order.
type CleanupService struct {
	backends []store.JobDataStore
}

// NewCleanupService returns models.ErrServiceUnavailable when no backends
// are configured, so callers can distinguish "coordinator missing" from a
// job-scoped failure.
func NewCleanupService(backends []store.JobDataStore) (*CleanupService, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("cleanup service requires at least one backend: %w", models.ErrServiceUnavailable)
	}
	return &CleanupService{backends: backends}, nil
}

// CleanupJob deletes the job's data from every backend, best-effort.
// Deleting a job whose data is already gone succeeds with zero deletions.
func (s *CleanupService) CleanupJob(ctx context.Context, jobID string) (*models.CleanupResult, error) {
	if jobID == "" {
		return nil, models.ErrInvalidJobID
	}
	result := &models.CleanupResult{
		JobID:    jobID,
		Success:  true,
		Services: make(map[string]models.ServiceCleanup, len(s.backends)),
		Errors:   []string{},
	}
	for _, backend := range s.backends {
		deleted, err := backend.DeleteJobData(ctx, jobID)
		if err != nil {
			msg := fmt.Sprintf("%s: %v", backend.Name(), err)
			log.Warnf("Cleanup of job %s failed on backend %s: %v", jobID, backend.Name(), err)
			result.Services[backend.Name()] = models.ServiceCleanup{Deleted: 0, Error: &msg}
			result.Errors = append(result.Errors, msg)
			result.Success = false
			continue
		}
		result.Services[backend.Name()] = models.ServiceCleanup{Deleted: deleted}
		result.TotalDeleted += deleted
	}
	return result, nil
}

// JobDataSummary counts the job's items per backend without mutating
// anything. A backend that errors contributes zero to the totals.
func (s *CleanupService) JobDataSummary(ctx context.Context, jobID string) (*models.DataSummary, error) {
	if jobID == "" {
		return nil, models.ErrInvalidJobID
	}
	summary := &models.DataSummary{
		JobID:    jobID,
		Services: make(map[string]int, len(s.backends)),
	}
	for _, backend := range s.backends {
		count, err := backend.CountJobData(ctx, jobID)
		if err != nil {
			log.Warnf("Data summary of job %s failed on backend %s: %v", jobID, backend.Name(), err)
			summary.Services[backend.Name()] = 0
			continue
		}
		summary.Services[backend.Name()] = count
		summary.TotalItems += count
	}
	return summary, nil
}

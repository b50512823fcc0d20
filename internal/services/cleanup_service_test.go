package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ingestd/internal/models"
	"ingestd/internal/store"
)

type mockBackend struct {
	mock.Mock
	name string
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

func (m *mockBackend) CountJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

func newBackends() (*mockBackend, *mockBackend, *mockBackend, *CleanupService) {
	vec := &mockBackend{name: "vector"}
	obj := &mockBackend{name: "object"}
	ana := &mockBackend{name: "analytics"}
	svc, _ := NewCleanupService([]store.JobDataStore{vec, obj, ana})
	return vec, obj, ana, svc
}

func TestCleanupJobAllBackendsSucceed(t *testing.T) {
	vec, obj, ana, svc := newBackends()
	vec.On("DeleteJobData", mock.Anything, "job-1").Return(10, nil).Once()
	obj.On("DeleteJobData", mock.Anything, "job-1").Return(3, nil).Once()
	ana.On("DeleteJobData", mock.Anything, "job-1").Return(7, nil).Once()

	result, err := svc.CleanupJob(context.Background(), "job-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 20, result.TotalDeleted)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Services, 3)
	assert.Equal(t, 10, result.Services["vector"].Deleted)
	assert.Nil(t, result.Services["vector"].Error)
	vec.AssertExpectations(t)
	obj.AssertExpectations(t)
	ana.AssertExpectations(t)
}

func TestCleanupJobOneBackendFails(t *testing.T) {
	vec, obj, ana, svc := newBackends()
	vec.On("DeleteJobData", mock.Anything, "abc").Return(0, errors.New("ConnectionError: dial tcp refused")).Once()
	obj.On("DeleteJobData", mock.Anything, "abc").Return(5, nil).Once()
	ana.On("DeleteJobData", mock.Anything, "abc").Return(2, nil).Once()

	result, err := svc.CleanupJob(context.Background(), "abc")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 7, result.TotalDeleted, "failed backend contributes 0, not an error in the sum")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ConnectionError")

	// Every configured backend appears in services, errored or not.
	require.Len(t, result.Services, 3)
	assert.Equal(t, 0, result.Services["vector"].Deleted)
	require.NotNil(t, result.Services["vector"].Error)
	assert.Contains(t, *result.Services["vector"].Error, "ConnectionError")
	assert.Equal(t, 5, result.Services["object"].Deleted)
	assert.Nil(t, result.Services["object"].Error)
}

func TestCleanupJobIsIdempotent(t *testing.T) {
	vec, obj, ana, svc := newBackends()
	vec.On("DeleteJobData", mock.Anything, "job-2").Return(4, nil).Once()
	obj.On("DeleteJobData", mock.Anything, "job-2").Return(1, nil).Once()
	ana.On("DeleteJobData", mock.Anything, "job-2").Return(1, nil).Once()

	first, err := svc.CleanupJob(context.Background(), "job-2")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 6, first.TotalDeleted)

	// Second run matches nothing; still a success with zero deletions.
	vec.On("DeleteJobData", mock.Anything, "job-2").Return(0, nil).Once()
	obj.On("DeleteJobData", mock.Anything, "job-2").Return(0, nil).Once()
	ana.On("DeleteJobData", mock.Anything, "job-2").Return(0, nil).Once()

	second, err := svc.CleanupJob(context.Background(), "job-2")
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.TotalDeleted)
}

func TestCleanupJobBlankIDRejected(t *testing.T) {
	_, _, _, svc := newBackends()
	_, err := svc.CleanupJob(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrInvalidJobID)
}

func TestNewCleanupServiceWithoutBackends(t *testing.T) {
	svc, err := NewCleanupService(nil)
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, models.ErrServiceUnavailable)
}

func TestJobDataSummary(t *testing.T) {
	vec, obj, ana, svc := newBackends()
	vec.On("CountJobData", mock.Anything, "job-3").Return(12, nil).Once()
	obj.On("CountJobData", mock.Anything, "job-3").Return(0, errors.New("timeout")).Once()
	ana.On("CountJobData", mock.Anything, "job-3").Return(8, nil).Once()

	summary, err := svc.JobDataSummary(context.Background(), "job-3")
	require.NoError(t, err)

	assert.Equal(t, 20, summary.TotalItems)
	require.Len(t, summary.Services, 3)
	assert.Equal(t, 12, summary.Services["vector"])
	assert.Equal(t, 0, summary.Services["object"])
	assert.Equal(t, 8, summary.Services["analytics"])
}

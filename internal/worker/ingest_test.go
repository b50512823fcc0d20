package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ingestd/internal/jobs"
	"ingestd/internal/models"
	"ingestd/internal/progress"
	"ingestd/internal/runtimeconfig"
	"ingestd/internal/tasks"
)

// --- mocks ---

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Name() string      { return "mock" }
func (m *mockEmbedder) ModelName() string { return "mock-model" }
func (m *mockEmbedder) Dimension() int    { return 3 }

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(pgvector.Vector), args.Error(1)
}

type mockVectorStore struct {
	mock.Mock
}

func (m *mockVectorStore) Name() string { return "vector" }
func (m *mockVectorStore) AddChunkEmbedding(ctx context.Context, entry *models.ChunkEmbedding) error {
	return m.Called(ctx, entry).Error(0)
}
func (m *mockVectorStore) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}
func (m *mockVectorStore) CountJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}
func (m *mockVectorStore) Ping(ctx context.Context) error { return nil }
func (m *mockVectorStore) Close() error                   { return nil }

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Name() string { return "object" }
func (m *mockObjectStore) PutPage(ctx context.Context, jobID string, page int, data []byte) error {
	return m.Called(ctx, jobID, page, data).Error(0)
}
func (m *mockObjectStore) GetPage(ctx context.Context, jobID string, page int) ([]byte, error) {
	args := m.Called(ctx, jobID, page)
	return args.Get(0).([]byte), args.Error(1)
}
func (m *mockObjectStore) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}
func (m *mockObjectStore) CountJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}
func (m *mockObjectStore) Ping(ctx context.Context) error { return nil }
func (m *mockObjectStore) Close() error                   { return nil }

type mockAnalyticsStore struct {
	mock.Mock
}

func (m *mockAnalyticsStore) Name() string { return "analytics" }
func (m *mockAnalyticsStore) RecordEvent(ctx context.Context, event *models.IngestEvent) error {
	return m.Called(ctx, event).Error(0)
}
func (m *mockAnalyticsStore) UpsertDocument(ctx context.Context, doc *models.IngestDocument) error {
	return m.Called(ctx, doc).Error(0)
}
func (m *mockAnalyticsStore) DeleteJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}
func (m *mockAnalyticsStore) CountJobData(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}
func (m *mockAnalyticsStore) Ping(ctx context.Context) error { return nil }
func (m *mockAnalyticsStore) Close() error                   { return nil }

// --- helpers ---

func testDeps() (IngestDeps, *mockEmbedder, *mockVectorStore, *mockObjectStore, *mockAnalyticsStore) {
	embedder := &mockEmbedder{}
	vec := &mockVectorStore{}
	obj := &mockObjectStore{}
	ana := &mockAnalyticsStore{}
	deps := IngestDeps{
		Embedder:    embedder,
		VectorStore: vec,
		ObjectStore: obj,
		Analytics:   ana,
		Bus:         progress.NewBus(),
		Registry:    jobs.NewRegistry(),
		Settings:    runtimeconfig.New(nil),
	}
	return deps, embedder, vec, obj, ana
}

func drainEvents(t *testing.T, bus *progress.Bus, jobID string) []progress.Event {
	t.Helper()
	var events []progress.Event
	bus.Stream(context.Background(), jobID, func(e progress.Event) bool {
		events = append(events, e)
		return true
	})
	return events
}

func ingestTask(t *testing.T, req models.IngestRequest) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeIngestDocument, payload)
}

// --- tests ---

func TestHandleIngestDocumentSuccess(t *testing.T) {
	deps, embedder, vec, obj, ana := testDeps()
	deps.Bus.Ensure("job-ok")

	embedder.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).
		Return(pgvector.NewVector([]float32{1, 2, 3}), nil)
	vec.On("AddChunkEmbedding", mock.Anything, mock.AnythingOfType("*models.ChunkEmbedding")).Return(nil)
	obj.On("PutPage", mock.Anything, "job-ok", mock.AnythingOfType("int"), mock.Anything).Return(nil)
	ana.On("RecordEvent", mock.Anything, mock.AnythingOfType("*models.IngestEvent")).Return(nil)
	ana.On("UpsertDocument", mock.Anything, mock.MatchedBy(func(d *models.IngestDocument) bool {
		return d.Status == models.JobStatusCompleted && d.JobID == "job-ok"
	})).Return(nil).Once()

	req := models.IngestRequest{
		JobID:      "job-ok",
		DocumentID: "doc-1",
		Title:      "Test Document",
		Pages: []models.DocumentPage{
			{Number: 1, Text: "First page of text."},
			{Number: 2, Text: "Second page of text."},
		},
	}
	err := HandleIngestDocument(deps)(context.Background(), ingestTask(t, req))
	require.NoError(t, err)

	events := drainEvents(t, deps.Bus, "job-ok")
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.KindDone, last.Kind)
	assert.Equal(t, models.JobStatusCompleted, last.Payload["status"])

	_, stillTracked := deps.Registry.Get("job-ok")
	assert.False(t, stillTracked, "registry entry must be removed on completion")
	ana.AssertExpectations(t)
}

func TestHandleIngestDocumentCancelledBeforeStart(t *testing.T) {
	deps, embedder, _, obj, ana := testDeps()
	deps.Bus.Ensure("job-cancel")
	deps.Registry.NewFlag("job-cancel")
	deps.Registry.Cancel("job-cancel")

	ana.On("UpsertDocument", mock.Anything, mock.MatchedBy(func(d *models.IngestDocument) bool {
		return d.Status == models.JobStatusCancelled
	})).Return(nil).Once()

	req := models.IngestRequest{
		JobID:      "job-cancel",
		DocumentID: "doc-2",
		Pages:      []models.DocumentPage{{Number: 1, Text: "Never processed."}},
	}
	err := HandleIngestDocument(deps)(context.Background(), ingestTask(t, req))
	require.NoError(t, err, "a cancelled job must not be retried")

	events := drainEvents(t, deps.Bus, "job-cancel")
	require.Len(t, events, 1)
	assert.Equal(t, progress.KindDone, events[0].Kind)
	assert.Equal(t, models.JobStatusCancelled, events[0].Payload["status"])

	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	obj.AssertNotCalled(t, "PutPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleIngestDocumentEmbedFailure(t *testing.T) {
	deps, embedder, _, obj, ana := testDeps()
	deps.Bus.Ensure("job-fail")

	obj.On("PutPage", mock.Anything, "job-fail", 1, mock.Anything).Return(nil)
	ana.On("RecordEvent", mock.Anything, mock.AnythingOfType("*models.IngestEvent")).Return(nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).
		Return(pgvector.Vector{}, errors.New("rate limited"))

	req := models.IngestRequest{
		JobID:      "job-fail",
		DocumentID: "doc-3",
		Pages:      []models.DocumentPage{{Number: 1, Text: "Some page text."}},
	}
	err := HandleIngestDocument(deps)(context.Background(), ingestTask(t, req))
	require.Error(t, err, "stage errors propagate so asynq can retry")

	events := drainEvents(t, deps.Bus, "job-fail")
	last := events[len(events)-1]
	assert.Equal(t, progress.KindError, last.Kind)
	assert.Contains(t, last.Payload["message"], "embed")
}

func TestHandleIngestDocumentRejectsMissingJobID(t *testing.T) {
	deps, _, _, _, _ := testDeps()
	req := models.IngestRequest{DocumentID: "doc-4", Pages: []models.DocumentPage{{Number: 1, Text: "x"}}}
	err := HandleIngestDocument(deps)(context.Background(), ingestTask(t, req))
	assert.ErrorIs(t, err, models.ErrInvalidJobID)
}

func TestRegisterHandlers(t *testing.T) {
	deps, _, _, _, _ := testDeps()
	mux := asynq.NewServeMux()
	RegisterHandlers(mux, deps)

	handlerInfo, _ := mux.Handler(asynq.NewTask(tasks.TypeIngestDocument, nil))
	assert.NotNil(t, handlerInfo)
}

// Package worker executes the ingestion pipeline for one document at a
// time: OCR each page, store the page artifact, chunk the text, embed each
// chunk and persist the vectors. Progress is pushed to the progress bus and
// the job's cancellation flag is polled between stages and between chunks.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"ingestd/internal/chunking"
	"ingestd/internal/jobs"
	"ingestd/internal/models"
	"ingestd/internal/progress"
	"ingestd/internal/runtimeconfig"
	"ingestd/internal/services"
	"ingestd/internal/store"
	"ingestd/internal/tasks"
)

// IngestDeps carries everything the ingest handler needs. Tunables are read
// through Settings at execution time so runtime updates apply to the next
// document without a restart.
type IngestDeps struct {
	OCR         services.OCRProvider
	Embedder    services.EmbeddingProvider
	VectorStore store.VectorStore
	ObjectStore store.ObjectStore
	Analytics   store.AnalyticsStore
	Bus         *progress.Bus
	Registry    *jobs.Registry
	Settings    *runtimeconfig.Store
}

// RegisterHandlers wires the ingest handler onto the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps IngestDeps) {
	mux.HandleFunc(tasks.TypeIngestDocument, HandleIngestDocument(deps))
}

// HandleIngestDocument returns the asynq handler for ingest:document tasks.
func HandleIngestDocument(deps IngestDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var req models.IngestRequest
		if err := json.Unmarshal(t.Payload(), &req); err != nil {
			return fmt.Errorf("unmarshal ingest payload: %w", err)
		}
		if req.JobID == "" {
			return fmt.Errorf("ingest task missing job_id: %w", models.ErrInvalidJobID)
		}
		return runIngest(ctx, deps, req)
	}
}

func runIngest(ctx context.Context, deps IngestDeps, req models.IngestRequest) error {
	flag := deps.Registry.NewFlag(req.JobID)
	maxTokens := deps.Settings.GetInt("INGEST_CHUNK_MAX_TOKENS", chunking.DefaultMaxTokens)
	overlap := deps.Settings.GetInt("INGEST_CHUNK_OVERLAP", chunking.DefaultOverlap)
	ocrTimeout := time.Duration(deps.Settings.GetInt("INGEST_OCR_TIMEOUT_SECONDS", 120)) * time.Second
	logStages := deps.Settings.GetBool("LOG_PIPELINE_STAGES", false)

	totalChunks := 0
	for i, page := range req.Pages {
		if flag.Cancelled() {
			return finishCancelled(ctx, deps, req, i, totalChunks)
		}

		text := page.Text
		if text == "" {
			var err error
			text, err = ocrPage(ctx, deps, page, ocrTimeout)
			if err != nil {
				return failStage(ctx, deps, req, models.StageOCR, page.Number, err)
			}
		}
		if logStages {
			log.Infof("Job %s: page %d OCR complete (%d bytes)", req.JobID, page.Number, len(text))
		}
		if err := deps.ObjectStore.PutPage(ctx, req.JobID, page.Number, []byte(text)); err != nil {
			return failStage(ctx, deps, req, models.StagePersist, page.Number, err)
		}
		recordStage(ctx, deps, req.JobID, models.StageOCR, page.Number, nil)
		deps.Bus.Send(req.JobID, map[string]any{
			"stage":       models.StageOCR,
			"page":        page.Number,
			"pages_total": len(req.Pages),
		})

		chunks := chunking.SplitText(text, maxTokens, overlap)
		recordStage(ctx, deps, req.JobID, models.StageChunk, page.Number, map[string]any{"chunks": len(chunks)})

		for _, chunk := range chunks {
			if flag.Cancelled() {
				return finishCancelled(ctx, deps, req, i, totalChunks)
			}
			vec, err := deps.Embedder.GenerateEmbedding(ctx, chunk.Text)
			if err != nil {
				return failStage(ctx, deps, req, models.StageEmbed, page.Number, err)
			}
			meta, _ := json.Marshal(map[string]any{"page": page.Number})
			entry := &models.ChunkEmbedding{
				JobID:      req.JobID,
				DocumentID: req.DocumentID,
				ChunkIndex: totalChunks,
				ChunkText:  chunk.Text,
				Vector:     vec,
				Metadata:   meta,
			}
			if err := deps.VectorStore.AddChunkEmbedding(ctx, entry); err != nil {
				return failStage(ctx, deps, req, models.StagePersist, page.Number, err)
			}
			totalChunks++
		}
		deps.Bus.Send(req.JobID, map[string]any{
			"stage":        models.StageEmbed,
			"page":         page.Number,
			"pages_total":  len(req.Pages),
			"chunks_total": totalChunks,
		})
	}

	if err := deps.Analytics.UpsertDocument(ctx, &models.IngestDocument{
		JobID:      req.JobID,
		DocumentID: req.DocumentID,
		Title:      req.Title,
		Pages:      len(req.Pages),
		Chunks:     totalChunks,
		Status:     models.JobStatusCompleted,
	}); err != nil {
		return failStage(ctx, deps, req, models.StageFinalize, 0, err)
	}
	recordStage(ctx, deps, req.JobID, models.StageFinalize, 0, map[string]any{"chunks": totalChunks})
	deps.Bus.Finalize(req.JobID, map[string]any{
		"status":       models.JobStatusCompleted,
		"document_id":  req.DocumentID,
		"pages":        len(req.Pages),
		"chunks_total": totalChunks,
	})
	deps.Registry.Remove(req.JobID)
	return nil
}

func ocrPage(ctx context.Context, deps IngestDeps, page models.DocumentPage, timeout time.Duration) (string, error) {
	if deps.OCR == nil {
		return "", fmt.Errorf("no OCR provider configured: %w", models.ErrServiceUnavailable)
	}
	image, mimeType, err := fetchPageImage(ctx, page.ImageURL)
	if err != nil {
		return "", err
	}
	ocrCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	text, err := deps.OCR.ExtractText(ocrCtx, image, mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrOCRFailed, err)
	}
	return text, nil
}

func fetchPageImage(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("page has neither text nor image_url")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build page image request: %w", err)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetch page image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch page image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read page image: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}
	return data, mimeType, nil
}

// finishCancelled reports a cancelled outcome, distinct from completed and
// failed, and returns nil so asynq does not retry.
func finishCancelled(ctx context.Context, deps IngestDeps, req models.IngestRequest, pagesDone, chunksDone int) error {
	log.Infof("Job %s cancelled after %d pages", req.JobID, pagesDone)
	if err := deps.Analytics.UpsertDocument(ctx, &models.IngestDocument{
		JobID:      req.JobID,
		DocumentID: req.DocumentID,
		Title:      req.Title,
		Pages:      pagesDone,
		Chunks:     chunksDone,
		Status:     models.JobStatusCancelled,
	}); err != nil {
		log.Warnf("Job %s: failed to record cancelled status: %v", req.JobID, err)
	}
	deps.Bus.Finalize(req.JobID, map[string]any{
		"status":      models.JobStatusCancelled,
		"document_id": req.DocumentID,
		"pages_done":  pagesDone,
	})
	deps.Registry.Remove(req.JobID)
	return nil
}

func failStage(ctx context.Context, deps IngestDeps, req models.IngestRequest, stage string, page int, err error) error {
	log.Errorf("Job %s: stage %s failed on page %d: %v", req.JobID, stage, page, err)
	recordStage(ctx, deps, req.JobID, stage, page, map[string]any{"error": err.Error()})
	deps.Bus.Error(req.JobID, fmt.Sprintf("stage %s failed: %v", stage, err))
	deps.Registry.Remove(req.JobID)
	return fmt.Errorf("job %s stage %s: %w", req.JobID, stage, err)
}

func recordStage(ctx context.Context, deps IngestDeps, jobID, stage string, page int, detail map[string]any) {
	status := "ok"
	if detail != nil {
		if _, failed := detail["error"]; failed {
			status = models.JobStatusFailed
		}
	}
	payload := map[string]any{"page": page}
	for k, v := range detail {
		payload[k] = v
	}
	raw, _ := json.Marshal(payload)
	event := &models.IngestEvent{JobID: jobID, Stage: stage, Status: status, Detail: raw}
	if err := deps.Analytics.RecordEvent(ctx, event); err != nil {
		log.Warnf("Job %s: failed to record %s event: %v", jobID, stage, err)
	}
}

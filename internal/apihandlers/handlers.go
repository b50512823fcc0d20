package apihandlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ingestd/internal/app"
	"ingestd/internal/models"
	"ingestd/internal/progress"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(app *app.App) *APIHandler {
	return &APIHandler{App: app}
}

// IngestRequest represents the JSON body to submit a document for ingestion.
type IngestRequest struct {
	JobID      string                `json:"job_id"` // optional; allocated when blank
	DocumentID string                `json:"document_id"`
	Title      string                `json:"title"`
	Pages      []models.DocumentPage `json:"pages"`
}

// IngestHandler accepts a document, allocates the job's tracking structures
// and enqueues the pipeline. The caller follows progress on the events URL.
func (h *APIHandler) IngestHandler(c *gin.Context) {
	req, err := parseIngestRequest(c)
	if err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		jobID = h.App.Bus.NewJob()
	} else {
		h.App.Bus.Ensure(jobID)
	}
	h.App.Registry.NewFlag(jobID)

	ingest := models.IngestRequest{
		JobID:      jobID,
		DocumentID: req.DocumentID,
		Title:      req.Title,
		Pages:      req.Pages,
	}
	if err := h.App.JobClient.EnqueueIngestJob(c.Request.Context(), ingest); err != nil {
		h.App.Bus.Cleanup(jobID)
		h.App.Registry.Remove(jobID)
		Internal(c, fmt.Sprintf("IngestHandler: failed to enqueue job: %v", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": models.JobStatusEnqueued,
	})
}

// parseIngestRequest parses and validates the ingestion request body.
func parseIngestRequest(c *gin.Context) (IngestRequest, error) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, err
	}
	if req.DocumentID == "" || len(req.Pages) == 0 {
		return req, fmt.Errorf("missing required fields: document_id and pages")
	}
	for _, p := range req.Pages {
		if p.ImageURL == "" && p.Text == "" {
			return req, fmt.Errorf("page %d has neither image_url nor text", p.Number)
		}
	}
	return req, nil
}

// StreamEventsHandler delivers the job's progress events as Server-Sent
// Events: one "data: <json>" frame per event, closing after a done, error
// or timeout frame. The stream is single-consumer and not restartable.
func (h *APIHandler) StreamEventsHandler(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		BadRequest(c, "Missing job id")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	h.App.Bus.Stream(c.Request.Context(), jobID, func(e progress.Event) bool {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", e.JSON()); err != nil {
			return false
		}
		c.Writer.Flush()
		return true
	})
}

// CancelJobHandler sets the job's cooperative cancellation flag. Running
// stages observe it at their next checkpoint; nothing is interrupted.
func (h *APIHandler) CancelJobHandler(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		BadRequest(c, "Missing job id")
		return
	}
	if !h.App.Registry.Cancel(jobID) {
		NotFound(c, fmt.Sprintf("No running job with id: %s", jobID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "cancelled": true})
}

// CleanupJobHandler removes the job's data from every backend, best-effort.
func (h *APIHandler) CleanupJobHandler(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		BadRequest(c, "Missing job id")
		return
	}
	if h.App.CleanupService == nil {
		ServiceUnavailable(c, "Cleanup service is not initialized")
		return
	}

	result, err := h.App.CleanupService.CleanupJob(c.Request.Context(), jobID)
	if err != nil {
		Internal(c, fmt.Sprintf("CleanupJobHandler: cleanup failed: %v", err))
		return
	}

	status := "completed"
	if !result.Success {
		status = "completed_with_errors"
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":        result.JobID,
		"status":        status,
		"total_deleted": result.TotalDeleted,
		"services":      result.Services,
		"errors":        result.Errors,
	})
}

// JobDataSummaryHandler reports how many items each backend holds for the job.
func (h *APIHandler) JobDataSummaryHandler(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		BadRequest(c, "Missing job id")
		return
	}
	if h.App.CleanupService == nil {
		ServiceUnavailable(c, "Cleanup service is not initialized")
		return
	}

	summary, err := h.App.CleanupService.JobDataSummary(c.Request.Context(), jobID)
	if err != nil {
		Internal(c, fmt.Sprintf("JobDataSummaryHandler: summary failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, summary)
}

package models

/*
Job and stage status constants for use throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// Job status constants
const (
	JobStatusEnqueued  = "enqueued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
	JobStatusTimedOut  = "timed_out"
)

// Pipeline stage constants
const (
	StageOCR      = "ocr"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StagePersist  = "persist"
	StageFinalize = "finalize"
)

package tasks

// Defines constants for task types used in Asynq.

const (
	// TypeIngestDocument runs the full ingestion pipeline for one document.
	TypeIngestDocument = "ingest:document"
)

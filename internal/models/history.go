package models

import (
	"time"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// HistoryEntry is the immutable record of a successfully completed job.
type HistoryEntry struct {
	EntryID          string        `json:"entry_id" validate:"required"`
	OriginalFileName string        `json:"original_file_name" validate:"required,lte=255"`
	OriginalPath     string        `json:"original_path" validate:"required"`
	ProcessedPath    string        `json:"processed_path" validate:"required"`
	OriginalWidth    int           `json:"original_width"`
	OriginalHeight   int           `json:"original_height"`
	ProcessedWidth   int           `json:"processed_width"`
	ProcessedHeight  int           `json:"processed_height"`
	Model            string        `json:"model"`
	Scale            ScaleFactor   `json:"scale,omitempty"`
	Quality          QualityPreset `json:"quality,omitempty"`
	ProcessingTime   time.Duration `json:"processing_time"`
	Timestamp        time.Time     `json:"timestamp"`
	Kind             MediaKind     `json:"kind"`
}

package history

import "github.com/pixelift/pixelift/internal/models"

// Repository reads and rewrites the full history list under a single durable
// key. There is no incremental append.
type Repository interface {
	Load() ([]models.HistoryEntry, error)
	Save(entries []models.HistoryEntry) error
}

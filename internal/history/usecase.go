package history

import "github.com/pixelift/pixelift/internal/models"

const MaxEntries = 100

// UseCase is the capped, most-recent-first log of completed jobs.
type UseCase interface {
	Add(entry models.HistoryEntry) error
	Remove(entryID string) error
	Clear() error
	List() []models.HistoryEntry
	Search(query string) []models.HistoryEntry
}

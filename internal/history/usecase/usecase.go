package usecase

import (
	"strings"
	"sync"

	"github.com/pixelift/pixelift/internal/history"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/logger"
)

type historyUC struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	repo    history.Repository
	logger  logger.Logger
}

func NewHistoryUseCase(repo history.Repository, log logger.Logger) (history.UseCase, error) {
	entries, err := repo.Load()
	if err != nil {
		return nil, err
	}
	return &historyUC{
		entries: entries,
		repo:    repo,
		logger:  log,
	}, nil
}

func (u *historyUC) Add(entry models.HistoryEntry) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.entries = append([]models.HistoryEntry{entry}, u.entries...)
	if len(u.entries) > history.MaxEntries {
		u.entries = u.entries[:history.MaxEntries]
	}
	return u.repo.Save(u.entries)
}

func (u *historyUC) Remove(entryID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	filtered := u.entries[:0]
	for _, e := range u.entries {
		if e.EntryID != entryID {
			filtered = append(filtered, e)
		}
	}
	u.entries = filtered
	return u.repo.Save(u.entries)
}

func (u *historyUC) Clear() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.entries = nil
	return u.repo.Save(u.entries)
}

func (u *historyUC) List() []models.HistoryEntry {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]models.HistoryEntry, len(u.entries))
	copy(out, u.entries)
	return out
}

func (u *historyUC) Search(query string) []models.HistoryEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return u.List()
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	var out []models.HistoryEntry
	for _, e := range u.entries {
		if strings.Contains(strings.ToLower(e.OriginalFileName), q) {
			out = append(out, e)
		}
	}
	return out
}

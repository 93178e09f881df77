package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/history"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/logger"
)

type fakeRepo struct {
	entries []models.HistoryEntry
}

func (r *fakeRepo) Load() ([]models.HistoryEntry, error) { return r.entries, nil }
func (r *fakeRepo) Save(entries []models.HistoryEntry) error {
	r.entries = append([]models.HistoryEntry(nil), entries...)
	return nil
}

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	cfg := &config.Config{Logger: config.Logger{Encoding: "console", Level: "error"}}
	l := logger.NewApiLogger(cfg)
	l.InitLogger()
	return l
}

func newStore(t *testing.T, repo history.Repository) history.UseCase {
	t.Helper()
	uc, err := NewHistoryUseCase(repo, newTestLogger(t))
	require.NoError(t, err)
	return uc
}

func entry(id int) models.HistoryEntry {
	return models.HistoryEntry{
		EntryID:          fmt.Sprintf("entry-%d", id),
		OriginalFileName: fmt.Sprintf("photo_%d.jpg", id),
		Timestamp:        time.Now(),
	}
}

func TestAddIsMostRecentFirst(t *testing.T) {
	uc := newStore(t, &fakeRepo{})

	for i := 0; i < 3; i++ {
		require.NoError(t, uc.Add(entry(i)))
	}

	list := uc.List()
	require.Len(t, list, 3)
	assert.Equal(t, "entry-2", list[0].EntryID)
	assert.Equal(t, "entry-0", list[2].EntryID)
}

func TestAddEvictsOldestBeyondCap(t *testing.T) {
	repo := &fakeRepo{}
	uc := newStore(t, repo)

	for i := 0; i < 150; i++ {
		require.NoError(t, uc.Add(entry(i)))
	}

	list := uc.List()
	require.Len(t, list, history.MaxEntries)
	assert.Equal(t, "entry-149", list[0].EntryID)
	assert.Equal(t, "entry-50", list[len(list)-1].EntryID)
	assert.Len(t, repo.entries, history.MaxEntries)
}

func TestRemove(t *testing.T) {
	uc := newStore(t, &fakeRepo{})
	for i := 0; i < 3; i++ {
		require.NoError(t, uc.Add(entry(i)))
	}

	require.NoError(t, uc.Remove("entry-1"))
	list := uc.List()
	require.Len(t, list, 2)
	for _, e := range list {
		assert.NotEqual(t, "entry-1", e.EntryID)
	}

	// unknown id is a no-op
	require.NoError(t, uc.Remove("entry-99"))
	assert.Len(t, uc.List(), 2)
}

func TestClear(t *testing.T) {
	repo := &fakeRepo{}
	uc := newStore(t, repo)
	for i := 0; i < 5; i++ {
		require.NoError(t, uc.Add(entry(i)))
	}

	require.NoError(t, uc.Clear())
	assert.Empty(t, uc.List())
	assert.Empty(t, repo.entries)
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	uc := newStore(t, &fakeRepo{})
	require.NoError(t, uc.Add(models.HistoryEntry{EntryID: "a", OriginalFileName: "Beach_Sunset.PNG"}))
	require.NoError(t, uc.Add(models.HistoryEntry{EntryID: "b", OriginalFileName: "mountain.jpg"}))
	require.NoError(t, uc.Add(models.HistoryEntry{EntryID: "c", OriginalFileName: "beach_day.jpg"}))

	got := uc.Search("BEACH")
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].EntryID)
	assert.Equal(t, "a", got[1].EntryID)

	assert.Len(t, uc.Search("  "), 3)
	assert.Empty(t, uc.Search("desert"))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	repo := &fakeRepo{}
	uc := newStore(t, repo)
	require.NoError(t, uc.Add(entry(1)))

	reopened := newStore(t, repo)
	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, "entry-1", list[0].EntryID)
}

func TestListReturnsCopy(t *testing.T) {
	uc := newStore(t, &fakeRepo{})
	require.NoError(t, uc.Add(entry(1)))

	list := uc.List()
	list[0].EntryID = "mutated"
	assert.Equal(t, "entry-1", uc.List()[0].EntryID)
}

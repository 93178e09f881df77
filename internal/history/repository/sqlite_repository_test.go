package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/history"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/db/sqlite"
)

func newTestRepo(t *testing.T) history.Repository {
	t.Helper()
	cfg := &config.Config{Storage: config.StorageConfig{Path: filepath.Join(t.TempDir(), "pixelift.db")}}
	db, err := sqlite.NewSqliteDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHistoryRepository(db)
}

func TestLoadEmptyStore(t *testing.T) {
	repo := newTestRepo(t)

	entries, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().UTC().Truncate(time.Second)
	saved := []models.HistoryEntry{
		{
			EntryID:          "entry-1",
			OriginalFileName: "photo.jpg",
			OriginalPath:     "/tmp/photo.jpg",
			ProcessedPath:    "/tmp/photo_4x.jpg",
			OriginalWidth:    1000,
			OriginalHeight:   500,
			ProcessedWidth:   4000,
			ProcessedHeight:  2000,
			Model:            "local",
			Scale:            4,
			Quality:          "balanced",
			ProcessingTime:   1200 * time.Millisecond,
			Timestamp:        now,
			Kind:             models.MediaKindImage,
		},
		{EntryID: "entry-2", OriginalFileName: "clip.mp4", Kind: models.MediaKindVideo, Timestamp: now},
	}
	require.NoError(t, repo.Save(saved))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, saved[0].EntryID, loaded[0].EntryID)
	assert.Equal(t, saved[0].ProcessedPath, loaded[0].ProcessedPath)
	assert.Equal(t, saved[0].Scale, loaded[0].Scale)
	assert.Equal(t, saved[1].Kind, loaded[1].Kind)
}

func TestSaveNilClears(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Save([]models.HistoryEntry{{EntryID: "entry-1"}}))
	require.NoError(t, repo.Save(nil))

	entries, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

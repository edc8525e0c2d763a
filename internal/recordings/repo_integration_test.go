//go:build integration_test || all_tests

package recordings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim-dev/speakpath/internal/db"
	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "speakpath",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestRepo_RecordingCRUD(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	_, err := repo.db.Exec(ctx, `DELETE FROM recording`)
	require.NoError(t, err)

	rec := &Recording{
		ID:        uuid.NewString(),
		Activity:  roadmap.VoiceJournaling,
		WeekKey:   "2025-W07",
		Day:       "2025-02-18",
		Filename:  "take.webm",
		Path:      "voice_journaling/2025-W07/take.webm",
		SizeBytes: 1024,
		MimeType:  "audio/webm",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Add(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Filename, got.Filename)
	assert.Equal(t, rec.SizeBytes, got.SizeBytes)

	list, err := repo.List(ctx, "voice_journaling", "2025-W07")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = repo.List(ctx, "shadowing_practice", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err := repo.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, deleted.ID)

	_, err = repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, ErrRecordingNotFound)
}

package recordings

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

// MetadataRepo is implemented by the pgx repo in production and by an
// in-memory mock in tests.
type MetadataRepo interface {
	Add(ctx context.Context, rec *Recording) error
	Get(ctx context.Context, id string) (*Recording, error)
	List(ctx context.Context, activity, weekKey string) ([]Recording, error)
	Delete(ctx context.Context, id string) (*Recording, error)
}

var (
	_ MetadataRepo = (*Repo)(nil)
	_ MetadataRepo = (*repoMock)(nil)
)

// Service pairs the disk blob store with the metadata repo so a recording is
// always saved (and deleted) in both places.
type Service struct {
	store *Store
	repo  MetadataRepo
	now   func() time.Time
}

func NewService(store *Store, repo MetadataRepo) *Service {
	return &Service{
		store: store,
		repo:  repo,
		now:   time.Now,
	}
}

// Save streams the audio to disk and records its metadata row.
func (s *Service) Save(
	ctx context.Context,
	activity roadmap.ActivityID,
	weekKey, day, filename, mimeType string,
	audio io.Reader,
) (*Recording, error) {
	relPath, size, err := s.store.Save(ctx, string(activity), weekKey, filename, audio)
	if err != nil {
		return nil, err
	}

	rec := &Recording{
		ID:        uuid.NewString(),
		Activity:  activity,
		WeekKey:   weekKey,
		Day:       day,
		Filename:  filename,
		Path:      relPath,
		SizeBytes: size,
		MimeType:  mimeType,
		CreatedAt: s.now(),
	}

	if err := s.repo.Add(ctx, rec); err != nil {
		// keep disk and db consistent: a row-less blob is invisible garbage
		if rmErr := s.store.Delete(ctx, relPath); rmErr != nil {
			log.Errorf("failed to remove orphaned recording blob %s: %s", relPath, rmErr)
		}
		return nil, err
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, activity, weekKey string) ([]Recording, error) {
	return s.repo.List(ctx, activity, weekKey)
}

// Open returns the audio stream and metadata of one recording.
func (s *Service) Open(ctx context.Context, id string) (io.ReadSeekCloser, *Recording, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.Open(ctx, rec.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, rec, nil
}

// Delete removes the metadata row and the blob. A blob already gone from
// disk is logged, not treated as a failure.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, rec.Path); err != nil && !errors.Is(err, ErrRecordingNotFound) {
		return err
	} else if errors.Is(err, ErrRecordingNotFound) {
		log.Warnf("recording %s had no blob at %s", id, rec.Path)
	}
	return nil
}

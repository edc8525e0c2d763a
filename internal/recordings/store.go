package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhkim-dev/speakpath/internal/telemetry/tracing"
)

// Store is the audio blob store. Files land under
// <root>/<activity>/<weekKey>/<uuid><ext> so a whole week of takes can be
// inspected (or wiped) as one directory.
type Store struct {
	rootPath string
}

func NewStore(rootPath string) (*Store, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings root: %w", err)
	}
	return &Store{rootPath: rootPath}, nil
}

// Save writes the audio stream to disk and returns the relative path and
// written size. The stored name is a fresh uuid, the client filename only
// survives in the metadata row.
func (s *Store) Save(ctx context.Context, activity, weekKey, clientFilename string, r io.Reader) (relPath string, size int64, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "recordingsStore.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	dir := filepath.Join(s.rootPath, sanitizeSegment(activity), sanitizeSegment(weekKey))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create recording dir: %w", err)
	}

	ext := strings.ToLower(path.Ext(clientFilename))
	if ext == "" {
		ext = ".webm"
	}
	name := uuid.NewString() + ext
	relPath = filepath.Join(sanitizeSegment(activity), sanitizeSegment(weekKey), name)
	fullPath := filepath.Join(s.rootPath, relPath)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("create recording file: %w", err)
	}
	defer f.Close()

	size, err = io.Copy(f, r)
	if err != nil {
		// half written file is useless, remove it
		if rmErr := os.Remove(fullPath); rmErr != nil {
			log.Errorf("failed to remove partial recording %s: %s", fullPath, rmErr)
		}
		return "", 0, fmt.Errorf("write recording file: %w", err)
	}

	span.SetAttributes(attribute.String("recording.path", relPath))
	log.Debugf("recording saved: %s [%d bytes]", relPath, size)
	return relPath, size, nil
}

// Open returns a reader over a stored recording.
func (s *Store) Open(ctx context.Context, relPath string) (rsc io.ReadSeekCloser, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "recordingsStore.open")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	fullPath, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if os.IsNotExist(err) {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return f, nil
}

// Delete removes the blob. A missing file is reported as not found.
func (s *Store) Delete(ctx context.Context, relPath string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "recordingsStore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if os.IsNotExist(err) {
		return ErrRecordingNotFound
	}
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}

	log.Debugf("recording deleted: %s", relPath)
	return nil
}

// resolve joins the relative path under the root and rejects anything that
// would escape it.
func (s *Store) resolve(relPath string) (string, error) {
	fullPath := filepath.Join(s.rootPath, relPath)
	cleanRoot := filepath.Clean(s.rootPath) + string(os.PathSeparator)
	if !strings.HasPrefix(fullPath, cleanRoot) {
		return "", fmt.Errorf("invalid recording path: %q", relPath)
	}
	return fullPath, nil
}

func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

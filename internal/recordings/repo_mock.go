package recordings

import (
	"context"
	"sort"
	"sync"
)

// repoMock is the in-memory metadata store used in handler and session tests.
type repoMock struct {
	mu         sync.Mutex
	recordings map[string]*Recording
}

func NewMockRepo() *repoMock {
	return &repoMock{
		recordings: map[string]*Recording{},
	}
}

func (r *repoMock) Add(_ context.Context, rec *Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *rec
	r.recordings[rec.ID] = &stored
	return nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recordings[id]
	if !ok {
		return nil, ErrRecordingNotFound
	}
	out := *rec
	return &out, nil
}

func (r *repoMock) List(_ context.Context, activity, weekKey string) ([]Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Recording
	for _, rec := range r.recordings {
		if activity != "" && string(rec.Activity) != activity {
			continue
		}
		if weekKey != "" && rec.WeekKey != weekKey {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *repoMock) Delete(_ context.Context, id string) (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recordings[id]
	if !ok {
		return nil, ErrRecordingNotFound
	}
	delete(r.recordings, id)
	out := *rec
	return &out, nil
}

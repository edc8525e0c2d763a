package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// repoMock is the in-memory store used in handler and service tests.
type repoMock struct {
	mu          sync.Mutex
	weeks       map[string]*WeekProgress
	lastUpdated *time.Time
}

func NewMockRepo() *repoMock {
	return &repoMock{
		weeks: map[string]*WeekProgress{},
	}
}

func (r *repoMock) clone(wp *WeekProgress) *WeekProgress {
	raw, _ := json.Marshal(wp)
	out := &WeekProgress{}
	_ = json.Unmarshal(raw, out)
	out.Revision = wp.Revision
	return out
}

func (r *repoMock) GetWeek(_ context.Context, weekKey string) (*WeekProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.weeks[weekKey]
	if !ok {
		return nil, ErrWeekNotFound
	}
	return r.clone(wp), nil
}

func (r *repoMock) SaveWeek(_ context.Context, weekKey string, wp *WeekProgress) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	revision := int64(1)
	if existing, ok := r.weeks[weekKey]; ok {
		revision = existing.Revision + 1
	}
	stored := r.clone(wp)
	stored.Revision = revision
	r.weeks[weekKey] = stored
	now := time.Now()
	r.lastUpdated = &now
	return revision, nil
}

func (r *repoMock) CreateWeekIfAbsent(_ context.Context, weekKey string, wp *WeekProgress) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.weeks[weekKey]; ok {
		return false, nil
	}
	stored := r.clone(wp)
	stored.Revision = 1
	r.weeks[weekKey] = stored
	now := time.Now()
	r.lastUpdated = &now
	return true, nil
}

func (r *repoMock) GetAll(_ context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := &Snapshot{Weeks: map[string]*WeekProgress{}, LastUpdated: r.lastUpdated}
	for key, wp := range r.weeks {
		snapshot.Weeks[key] = r.clone(wp)
	}
	return snapshot, nil
}

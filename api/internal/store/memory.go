package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process JobStore. Records live until the process exits.
type Memory struct {
	mu sync.RWMutex
	m  map[string]Job
}

func NewMemory() *Memory { return &Memory{m: make(map[string]Job)} }

func (s *Memory) Put(_ context.Context, j Job) error {
	j.Debug = append([]byte(nil), j.Debug...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]Job)
	}
	s.m[j.ID] = j
	return nil
}

func (s *Memory) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.m[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

func (s *Memory) ListStale(_ context.Context, before time.Time) ([]Job, error) {
	s.mu.RLock()
	var out []Job
	for _, j := range s.m {
		if j.Status == StatusRunning && j.UpdatedAt.Before(before) {
			out = append(out, j)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (s *Memory) Advance(_ context.Context, j Job) (bool, error) {
	return s.replaceRunning(j, time.Time{}), nil
}

func (s *Memory) CloseStale(_ context.Context, j Job, before time.Time) (bool, error) {
	return s.replaceRunning(j, before), nil
}

// replaceRunning: проверка и запись под одним локом; нулевой before не ограничивает updated_at.
func (s *Memory) replaceRunning(j Job, before time.Time) bool {
	j.Debug = append([]byte(nil), j.Debug...)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[j.ID]
	if !ok || cur.Status != StatusRunning {
		return false
	}
	if !before.IsZero() && !cur.UpdatedAt.Before(before) {
		return false
	}
	s.m[j.ID] = j
	return true
}

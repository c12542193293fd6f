// Package store keeps the status of asynchronous jobs.
package store

import (
	"context"
	"sync"
	"time"
)

// Job states.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
)

type Status struct {
	Status    string                 `json:"status"`
	Operation string                 `json:"operation,omitempty"`
	Progress  int                    `json:"progress"`
	Message   string                 `json:"message"`
	Start     *time.Time             `json:"start_time,omitempty"`
	End       *time.Time             `json:"end_time,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StatusStore persists job status by id.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStatus is a process-local StatusStore.
type MemoryStatus struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]Status)}
}

func (m *MemoryStatus) Set(_ context.Context, jobID string, st Status) error {
	m.mu.Lock()
	m.jobs[jobID] = st
	m.mu.Unlock()
	return nil
}

func (m *MemoryStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
	m.mu.RLock()
	st, ok := m.jobs[jobID]
	m.mu.RUnlock()
	return st, ok, nil
}

func (m *MemoryStatus) Ping(context.Context) error { return nil }

func (m *MemoryStatus) Close() error { return nil }

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultCapacity is the number of records a Recorder keeps when none is given.
const DefaultCapacity = 1024

// Recorder implements ports.TraceSink in memory as a bounded ring.
// Safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	records  []domain.TraceRecord
	capacity int
}

// NewRecorder creates a recorder that keeps the newest capacity records.
// A non-positive capacity selects DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		records:  make([]domain.TraceRecord, 0, capacity),
		capacity: capacity,
	}
}

// Publish appends a record, evicting the oldest one when full.
func (r *Recorder) Publish(ctx context.Context, rec domain.TraceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == r.capacity {
		copy(r.records, r.records[1:])
		r.records = r.records[:len(r.records)-1]
	}
	r.records = append(r.records, rec)
	return nil
}

// Recent returns up to n records, oldest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]domain.TraceRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := max(len(r.records)-n, 0)
	out := make([]domain.TraceRecord, len(r.records)-start)
	copy(out, r.records[start:])
	return out, nil
}

// All returns a copy of every retained record.
func (r *Recorder) All() []domain.TraceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TraceRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Reset drops all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = r.records[:0]
}

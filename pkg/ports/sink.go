package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TraceSink stores hook records for later inspection.
// Implementations must be safe for concurrent use.
type TraceSink interface {
	// Publish appends a record.
	Publish(ctx context.Context, rec domain.TraceRecord) error

	// Recent returns up to n records, oldest first.
	Recent(ctx context.Context, n int) ([]domain.TraceRecord, error)
}

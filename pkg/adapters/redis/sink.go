package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultStream = "arbor:trace"
	defaultMaxLen = 10000
	recordField   = "record"
)

// Sink implements ports.TraceSink on a Redis stream.
// It is a telemetry outlet only; machine state is never read back from it.
type Sink struct {
	client *backend.Client
	stream string
	maxLen int64
	approx bool
}

type Option func(*Sink)

// WithStream sets the stream key.
func WithStream(stream string) Option {
	return func(s *Sink) {
		s.stream = stream
	}
}

// WithMaxLen caps the stream length. Zero disables trimming.
func WithMaxLen(n int64) Option {
	return func(s *Sink) {
		s.maxLen = n
	}
}

// WithExactTrim trims the stream to exactly MaxLen instead of the cheaper "~" form.
func WithExactTrim() Option {
	return func(s *Sink) {
		s.approx = false
	}
}

// New creates a new Redis sink with options.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sink {
	s := &Sink{
		client: client,
		stream: defaultStream,
		maxLen: defaultMaxLen,
		approx: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish appends a record to the stream with XADD.
func (s *Sink) Publish(ctx context.Context, rec domain.TraceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal trace record: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{recordField: data},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = s.approx
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis error publishing trace: %w", err)
	}
	return nil
}

// Recent reads the newest n entries with XREVRANGE and returns them oldest first.
func (s *Sink) Recent(ctx context.Context, n int) ([]domain.TraceRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error reading trace: %w", err)
	}

	out := make([]domain.TraceRecord, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[recordField].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s has no %q field", msg.ID, recordField)
		}
		var rec domain.TraceRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stream entry %s: %w", msg.ID, err)
		}
		out = append(out, rec)
	}
	slices.Reverse(out)
	return out, nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}

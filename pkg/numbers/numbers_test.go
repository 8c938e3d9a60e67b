package numbers_test

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/numbers"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTraced(t *testing.T, opts ...arbor.Option) (*numbers.Machine, *memory.Recorder) {
	t.Helper()
	rec := memory.NewRecorder(0)
	opts = append(opts, arbor.WithName("numbers"),
		arbor.WithLifecycleHooks(observability.SinkHooks(rec, logging.NewNop())))
	m, err := numbers.New(opts...)
	require.NoError(t, err)
	return m, rec
}

func snapshot(t *testing.T, m *numbers.Machine) numbers.Snapshot {
	t.Helper()
	snap, err := numbers.Take(m)
	require.NoError(t, err)
	return snap
}

func transitions(recs []domain.TraceRecord) [][2]domain.StateID {
	var out [][2]domain.StateID
	for _, r := range recs {
		if r.Type == domain.HookTransition {
			out = append(out, [2]domain.StateID{r.From, r.To})
		}
	}
	return out
}

func TestNumbers_StartsWaiting(t *testing.T) {
	m, _ := newTraced(t)
	assert.Equal(t, numbers.Snapshot{State: numbers.StateWaiting, Numbers: []uint32{}}, snapshot(t, m))
}

func TestNumbers_TransitionOrderingFromIdle(t *testing.T) {
	m, rec := newTraced(t)
	ctx := context.Background()

	require.NoError(t, m.Handle(ctx, numbers.NumberReceived{Value: 4}))

	recs := rec.All()
	require.Len(t, recs, 2)

	assert.Equal(t, domain.HookDispatch, recs[0].Type)
	assert.Equal(t, numbers.StateWaiting, recs[0].State)
	assert.False(t, recs[0].Superstate)
	assert.Equal(t, numbers.EventNumberReceived, recs[0].Event)

	assert.Equal(t, domain.HookTransition, recs[1].Type)
	assert.Equal(t, numbers.StateWaiting, recs[1].From)
	assert.Equal(t, numbers.StateProcessing, recs[1].To)
	assert.Equal(t, recs[0].CycleID, recs[1].CycleID, "both hooks belong to one dispatch cycle")

	assert.Equal(t, []uint32{4}, snapshot(t, m).Numbers)
}

func TestNumbers_SuperstateQueuesWhileBusy(t *testing.T) {
	for _, leaf := range []domain.StateID{numbers.StateProcessing, numbers.StateStoring} {
		t.Run(string(leaf), func(t *testing.T) {
			m, rec := newTraced(t)
			ctx := context.Background()

			require.NoError(t, m.Handle(ctx, numbers.NumberReceived{Value: 1}))
			if leaf == numbers.StateStoring {
				require.NoError(t, m.Handle(ctx, numbers.NumberProcessed{}))
			}
			require.Equal(t, leaf, snapshot(t, m).State)
			rec.Reset()

			require.NoError(t, m.Handle(ctx, numbers.NumberReceived{Value: 2}))

			snap := snapshot(t, m)
			assert.Equal(t, leaf, snap.State)
			assert.Equal(t, []uint32{1, 2}, snap.Numbers)

			recs := rec.All()
			require.Len(t, recs, 2, "leaf then busy, and no transition")
			assert.Equal(t, leaf, recs[0].State)
			assert.False(t, recs[0].Superstate)
			assert.Equal(t, numbers.SuperBusy, recs[1].State)
			assert.True(t, recs[1].Superstate)
			assert.Empty(t, transitions(recs))
		})
	}
}

func TestNumbers_EndToEnd(t *testing.T) {
	m, rec := newTraced(t)
	ctx := context.Background()

	for _, n := range []uint32{4, 7, 9} {
		require.NoError(t, m.Handle(ctx, numbers.NumberReceived{Value: n}))
	}
	assert.Equal(t, numbers.Snapshot{State: numbers.StateProcessing, Numbers: []uint32{4, 7, 9}}, snapshot(t, m))

	remaining := [][]uint32{{7, 9}, {9}, {}}
	for i, want := range remaining {
		require.NoError(t, m.Handle(ctx, numbers.NumberProcessed{}))
		assert.Equal(t, numbers.StateStoring, snapshot(t, m).State)

		require.NoError(t, m.Handle(ctx, numbers.NumberStored{}))
		snap := snapshot(t, m)
		assert.Equal(t, want, snap.Numbers, "after NumberStored #%d", i+1)
	}

	assert.Equal(t, numbers.StateWaiting, snapshot(t, m).State)
	assert.Equal(t, [][2]domain.StateID{
		{numbers.StateWaiting, numbers.StateProcessing},
		{numbers.StateProcessing, numbers.StateStoring},
		{numbers.StateStoring, numbers.StateProcessing},
		{numbers.StateProcessing, numbers.StateStoring},
		{numbers.StateStoring, numbers.StateProcessing},
		{numbers.StateProcessing, numbers.StateStoring},
		{numbers.StateStoring, numbers.StateWaiting},
	}, transitions(rec.All()))
}

func TestNumbers_UnhandledIsNoOp(t *testing.T) {
	tests := []struct {
		name  string
		setup []domain.Event
		event domain.Event
	}{
		{"processed while waiting", nil, numbers.NumberProcessed{}},
		{"stored while waiting", nil, numbers.NumberStored{}},
		{"stored while processing", []domain.Event{numbers.NumberReceived{Value: 3}}, numbers.NumberStored{}},
		{"processed while storing", []domain.Event{numbers.NumberReceived{Value: 3}, numbers.NumberProcessed{}}, numbers.NumberProcessed{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, policy := range []domain.UnhandledPolicy{domain.UnhandledIgnore, domain.UnhandledLog, domain.UnhandledFail} {
				m, rec := newTraced(t, arbor.WithUnhandledPolicy(policy))
				ctx := context.Background()
				for _, ev := range tt.setup {
					require.NoError(t, m.Handle(ctx, ev))
				}
				before := snapshot(t, m)
				rec.Reset()

				err := m.Handle(ctx, tt.event)
				if policy == domain.UnhandledFail {
					assert.ErrorIs(t, err, domain.ErrUnhandledEvent)
				} else {
					assert.NoError(t, err)
				}

				assert.Equal(t, before, snapshot(t, m), "policy %s", policy)
				recs := rec.All()
				assert.Empty(t, transitions(recs))
				require.NotEmpty(t, recs)
				assert.Equal(t, domain.HookUnhandled, recs[len(recs)-1].Type)
			}
		})
	}
}

func TestNumbers_InvariantsUnderRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m, _ := newTraced(t)
	ctx := context.Background()

	var expected []uint32
	for i := 0; i < 2000; i++ {
		before := snapshot(t, m)

		var ev domain.Event
		switch rng.Intn(3) {
		case 0:
			v := uint32(rng.Intn(1000))
			ev = numbers.NumberReceived{Value: v}
			expected = append(expected, v)
		case 1:
			ev = numbers.NumberProcessed{}
		default:
			ev = numbers.NumberStored{}
			if before.State == numbers.StateStoring {
				expected = expected[1:]
			}
		}
		require.NoError(t, m.Handle(ctx, ev))

		snap := snapshot(t, m)
		assert.Equal(t, append([]uint32{}, expected...), snap.Numbers, "step %d", i)
		if snap.State == numbers.StateWaiting {
			assert.Empty(t, snap.Numbers, "waiting with a non-empty queue at step %d", i)
		} else {
			assert.NotEmpty(t, snap.Numbers, "%s with an empty queue at step %d", snap.State, i)
		}
	}
}

func TestNumbers_ConcurrentHandleIsSerializable(t *testing.T) {
	m, _ := newTraced(t)
	ctx := context.Background()

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, m.Handle(ctx, numbers.NumberReceived{Value: uint32(p*perProducer + i)}))
			}
		}(p)
	}
	wg.Wait()

	snap := snapshot(t, m)
	assert.Equal(t, numbers.StateProcessing, snap.State)
	require.Len(t, snap.Numbers, producers*perProducer)

	seen := make(map[uint32]bool)
	last := make(map[int]int)
	for _, v := range snap.Numbers {
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
		p, i := int(v)/perProducer, int(v)%perProducer
		if prev, ok := last[p]; ok {
			assert.Greater(t, i, prev, "producer %d out of order", p)
		}
		last[p] = i
	}
}

func TestNumbers_DecodeEvent(t *testing.T) {
	ev, err := numbers.DecodeEvent(map[string]any{"type": "number_received", "value": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, numbers.NumberReceived{Value: 4}, ev)

	ev, err = numbers.DecodeEvent(map[string]any{"type": "number_processed"})
	require.NoError(t, err)
	assert.Equal(t, numbers.NumberProcessed{}, ev)

	ev, err = numbers.DecodeEvent(map[string]any{"type": "number_stored"})
	require.NoError(t, err)
	assert.Equal(t, numbers.NumberStored{}, ev)

	bad := []map[string]any{
		{},
		{"type": "number_teleported"},
		{"type": "number_received"},
		{"type": "number_received", "value": float64(-1)},
		{"type": "number_received", "value": float64(1.5)},
		{"type": "number_received", "value": float64(1 << 40)},
		{"type": "number_received", "value": "four"},
		{"type": "number_received", "value": int64(1<<32 + 5)},
		{"type": "number_received", "value": int(-7)},
		{"type": "number_received", "value": uint64(math.MaxUint32 + 1)},
		{"type": "number_received", "value": json.Number("4294967296")},
		{"type": "number_received", "value": json.Number("-1")},
		{"type": "number_received", "value": float32(2.5)},
	}
	for _, raw := range bad {
		_, err := numbers.DecodeEvent(raw)
		assert.Error(t, err, "payload %v", raw)
	}

	good := map[uint32]any{
		7:              int(7),
		math.MaxUint32: int64(math.MaxUint32),
		8:              uint8(8),
		9:              json.Number("9"),
	}
	for want, v := range good {
		ev, err := numbers.DecodeEvent(map[string]any{"type": "number_received", "value": v})
		require.NoError(t, err, "value %T(%v)", v, v)
		assert.Equal(t, numbers.NumberReceived{Value: want}, ev)
	}
}

func TestNumbers_DecodeInputRejectsWorkerEvents(t *testing.T) {
	ev, err := numbers.DecodeInput(map[string]any{"type": "number_received", "value": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, numbers.NumberReceived{Value: 4}, ev)

	for _, typ := range []string{"number_processed", "number_stored"} {
		_, err := numbers.DecodeInput(map[string]any{"type": typ})
		assert.ErrorContains(t, err, "reserved for the worker", typ)
	}

	_, err = numbers.DecodeInput(map[string]any{"type": "number_received", "value": int64(-1)})
	assert.Error(t, err)
}

// stalledSink blocks every Publish until release is closed.
type stalledSink struct {
	release chan struct{}
	*memory.Recorder
}

func (s *stalledSink) Publish(ctx context.Context, rec domain.TraceRecord) error {
	<-s.release
	return s.Recorder.Publish(ctx, rec)
}

func TestNumbers_SlowTraceSinkDoesNotStallReaders(t *testing.T) {
	inner := &stalledSink{release: make(chan struct{}), Recorder: memory.NewRecorder(0)}
	sink := observability.NewAsyncSink(inner, logging.NewNop(), 0)
	m, err := numbers.New(arbor.WithLifecycleHooks(observability.SinkHooks(sink, logging.NewNop())))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, m.Handle(context.Background(), numbers.NumberReceived{Value: 3}))
		head, ok, err := numbers.Head(m)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint32(3), head)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Handle or Head waited on the trace sink")
	}

	close(inner.release)
	require.NoError(t, sink.Close())
	assert.NotEmpty(t, inner.All())
}

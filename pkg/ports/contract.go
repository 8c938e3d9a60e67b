package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTraceSinkContract runs a suite of tests to verify that a TraceSink implementation
// adheres to the defined interface contract. The sink must start empty and hold at
// least 10 records.
func RunTraceSinkContract(t *testing.T, sink TraceSink) {
	ctx := context.Background()
	cycle := "contract-" + time.Now().Format("20060102150405")

	t.Run("Empty", func(t *testing.T) {
		recs, err := sink.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("Publish and Recent", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		for i := 0; i < 5; i++ {
			err := sink.Publish(ctx, domain.TraceRecord{
				Timestamp: now.Add(time.Duration(i) * time.Millisecond),
				Type:      domain.HookDispatch,
				Machine:   "contract",
				CycleID:   cycle,
				Event:     domain.EventType(fmt.Sprintf("ev-%d", i)),
				State:     "waiting",
			})
			require.NoError(t, err, "Publish should not return error")
		}

		recs, err := sink.Recent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, recs, 3)

		// Newest three, oldest first.
		assert.Equal(t, domain.EventType("ev-2"), recs[0].Event)
		assert.Equal(t, domain.EventType("ev-4"), recs[2].Event)
		assert.Equal(t, cycle, recs[0].CycleID)
		assert.Equal(t, domain.StateID("waiting"), recs[0].State)
		assert.True(t, recs[0].Timestamp.Equal(now.Add(2*time.Millisecond)))
	})

	t.Run("Transition Fields", func(t *testing.T) {
		err := sink.Publish(ctx, domain.TraceRecord{
			Timestamp: time.Now(),
			Type:      domain.HookTransition,
			CycleID:   cycle,
			From:      "waiting",
			To:        "processing_number",
		})
		require.NoError(t, err)

		recs, err := sink.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, domain.HookTransition, recs[0].Type)
		assert.Equal(t, domain.StateID("waiting"), recs[0].From)
		assert.Equal(t, domain.StateID("processing_number"), recs[0].To)
	})

	t.Run("Non-positive Limit", func(t *testing.T) {
		recs, err := sink.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

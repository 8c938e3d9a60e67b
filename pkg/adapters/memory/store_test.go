package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Contract(t *testing.T) {
	ports.RunTraceSinkContract(t, memory.NewRecorder(0))
}

func TestRecorder_EvictsOldest(t *testing.T) {
	rec := memory.NewRecorder(2)
	ctx := context.Background()

	for _, id := range []domain.StateID{"a", "b", "c"} {
		require.NoError(t, rec.Publish(ctx, domain.TraceRecord{State: id}))
	}

	all := rec.All()
	require.Len(t, all, 2)
	assert.Equal(t, domain.StateID("b"), all[0].State)
	assert.Equal(t, domain.StateID("c"), all[1].State)

	recent, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, all, recent)

	rec.Reset()
	assert.Empty(t, rec.All())
}

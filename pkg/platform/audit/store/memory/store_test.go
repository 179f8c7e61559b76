package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/tx"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	tenant := audit.Ref{Type: "Tenant", ID: "t-1"}
	client := audit.Ref{Type: "Client", ID: "c-1"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("lists one entity in append order", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Append(ctx, audit.NewRecord(tenant, audit.ActionCreate, "u1", "", now)))
		require.NoError(t, store.Append(ctx, audit.NewRecord(client, audit.ActionCreate, "u1", "", now)))
		require.NoError(t, store.Append(ctx, audit.NewRecord(tenant, audit.ActionUpdate, "u2", "", now)))

		records, err := store.ListByAuditable(ctx, tenant)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, audit.ActionCreate, records[0].Action)
		assert.Equal(t, audit.ActionUpdate, records[1].Action)
	})

	t.Run("recent is newest first and bounded", func(t *testing.T) {
		store := NewInMemoryStore()
		for _, a := range audit.Actions {
			require.NoError(t, store.Append(ctx, audit.NewRecord(tenant, a, "u1", "", now)))
		}

		recent, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, audit.ActionDestroy, recent[0].Action)
		assert.Equal(t, audit.ActionUpdate, recent[1].Action)

		all, err := store.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("rolled back appends are withdrawn", func(t *testing.T) {
		store := NewInMemoryStore()
		runner := tx.NewMemory()
		require.NoError(t, store.Append(ctx, audit.NewRecord(tenant, audit.ActionCreate, "u1", "", now)))

		err := runner.RunInTx(ctx, func(ctx context.Context) error {
			require.NoError(t, store.Append(ctx, audit.NewRecord(tenant, audit.ActionUpdate, "u1", "", now)))
			return errors.New("mutation failed")
		})

		require.Error(t, err)
		assert.Equal(t, 1, store.Len())
	})
}

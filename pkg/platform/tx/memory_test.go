package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "audittrail/pkg/domain-errors"
)

func TestMemoryRunInTx(t *testing.T) {
	t.Run("commit keeps effects", func(t *testing.T) {
		runner := NewMemory()
		var log []string

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			log = append(log, "write")
			OnRollback(ctx, func() { log = log[:len(log)-1] })
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"write"}, log)
	})

	t.Run("error undoes effects in reverse order", func(t *testing.T) {
		runner := NewMemory()
		var undone []string
		boom := errors.New("boom")

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			OnRollback(ctx, func() { undone = append(undone, "first") })
			OnRollback(ctx, func() { undone = append(undone, "second") })
			return boom
		})

		require.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"second", "first"}, undone)
	})

	t.Run("panic undoes effects", func(t *testing.T) {
		runner := NewMemory()
		undone := false

		assert.Panics(t, func() {
			_ = runner.RunInTx(context.Background(), func(ctx context.Context) error {
				OnRollback(ctx, func() { undone = true })
				panic("store exploded")
			})
		})
		assert.True(t, undone)
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		runner := NewMemory()
		undone := 0
		boom := errors.New("outer failure")

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			inner := runner.RunInTx(ctx, func(ctx context.Context) error {
				OnRollback(ctx, func() { undone++ })
				return nil
			})
			require.NoError(t, inner)
			return boom
		})

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, undone, "inner work is undone with the outer transaction")
	})

	t.Run("cancelled context is rejected", func(t *testing.T) {
		runner := NewMemory()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := runner.RunInTx(ctx, func(context.Context) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		assert.False(t, called)
	})

	t.Run("OnRollback outside a transaction is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() {
			OnRollback(context.Background(), func() { t.Fatal("must not run") })
		})
	})
}

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
}

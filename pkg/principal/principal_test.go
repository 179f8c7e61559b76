package principal

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail/pkg/testutil"
)

func TestCurrent(t *testing.T) {
	t.Run("no source installed", func(t *testing.T) {
		_, ok := Current(context.Background())
		assert.False(t, ok)
		assert.False(t, Installed(context.Background()))
	})

	t.Run("producers yield id and ip", func(t *testing.T) {
		ctx := Install(context.Background(), Source{
			User: func() string { return "user-1" },
			IP:   func() string { return "10.0.0.1" },
		})

		p, ok := Current(ctx)
		require.True(t, ok)
		assert.Equal(t, Principal{ID: "user-1", IP: "10.0.0.1"}, p)
	})

	t.Run("nil producers yield nothing", func(t *testing.T) {
		ctx := Install(context.Background(), Source{})
		assert.True(t, Installed(ctx))
		_, ok := Current(ctx)
		assert.False(t, ok)
	})

	t.Run("ip without id is current but not resolvable", func(t *testing.T) {
		ctx := Install(context.Background(), Source{IP: func() string { return "10.0.0.9" }})

		p, ok := Current(ctx)
		require.True(t, ok)
		assert.Equal(t, "10.0.0.9", p.IP)

		_, ok = Resolve(ctx)
		assert.False(t, ok)
	})

	t.Run("producers are evaluated at lookup time", func(t *testing.T) {
		var user atomic.Value
		user.Store("")
		ctx := Install(context.Background(), Source{User: func() string { return user.Load().(string) }})

		_, ok := Resolve(ctx)
		assert.False(t, ok)

		user.Store("late-login")
		p, ok := Resolve(ctx)
		require.True(t, ok)
		assert.Equal(t, "late-login", p.ID)
	})
}

func TestInstallReplaces(t *testing.T) {
	outer := Set(context.Background(), Principal{ID: "outer", IP: "1.1.1.1"})
	inner := Install(outer, Source{User: func() string { return "inner" }})

	p, ok := Resolve(inner)
	require.True(t, ok)
	assert.Equal(t, "inner", p.ID)
	assert.Empty(t, p.IP, "sources are replaced, never merged")

	p, ok = Resolve(outer)
	require.True(t, ok)
	assert.Equal(t, "outer", p.ID)
}

func TestClear(t *testing.T) {
	ctx := Set(context.Background(), Principal{ID: "job-runner"})
	cleared := Clear(ctx)

	assert.False(t, Installed(cleared))
	_, ok := Current(cleared)
	assert.False(t, ok)

	_, ok = Resolve(ctx)
	assert.True(t, ok, "parent context keeps its source")

	_, ok = Current(Clear(context.Background()))
	assert.False(t, ok, "clearing with nothing installed is a no-op")
}

func TestSet(t *testing.T) {
	ctx := Set(context.Background(), Principal{ID: "cron", IP: "127.0.0.1"})
	p, ok := Resolve(ctx)
	require.True(t, ok)
	assert.True(t, p.HasID())
	assert.True(t, p.HasIP())
	assert.Equal(t, "cron", p.ID)
}

func TestConcurrentUnitsAreIsolated(t *testing.T) {
	const workers = 64
	base := context.Background()

	result := testutil.RunConcurrent(workers, func(idx int) error {
		want := fmt.Sprintf("user-%d", idx)
		ctx := Set(base, Principal{ID: want, IP: fmt.Sprintf("10.0.0.%d", idx)})
		for i := 0; i < 100; i++ {
			p, ok := Resolve(ctx)
			if !ok || p.ID != want {
				return fmt.Errorf("worker %d saw %q", idx, p.ID)
			}
		}
		return nil
	})

	assert.Equal(t, int32(workers), result.Successes)
	_, ok := Current(base)
	assert.False(t, ok)
}

package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nulzo/prism-copy/internal/kv"
	"github.com/nulzo/prism-copy/internal/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newGate(t *testing.T, limit int) (*Gate, *memory.Store, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	store := memory.New()
	return NewGate(store, limit, WithClock(c.Now), WithLocation(time.UTC)), store, c
}

func TestGate_FreshStore(t *testing.T) {
	g, store, _ := newGate(t, 3)
	ctx := context.Background()

	info, err := g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, Info{DailyUsed: 0, DailyLimit: 3, CanUseFeature: true}, info)

	var rec Record
	require.NoError(t, store.Get(ctx, storageKey, &rec))
	assert.Equal(t, "2026-03-14", rec.LastResetDate)
}

func TestGate_IncrementUntilLimit(t *testing.T) {
	g, _, _ := newGate(t, 2)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		ok, err := g.CanUse(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		info, err := g.Increment(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, info.DailyUsed)
	}

	ok, err := g.CanUse(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := g.Info(ctx)
	require.NoError(t, err)
	assert.False(t, info.CanUseFeature)
}

func TestGate_ResetsOnNewDay(t *testing.T) {
	g, store, c := newGate(t, 5)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, storageKey, Record{DailyUsed: 5, LastResetDate: "2026-03-13"}))

	info, err := g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.DailyUsed)
	assert.True(t, info.CanUseFeature)

	var rec Record
	require.NoError(t, store.Get(ctx, storageKey, &rec))
	assert.Equal(t, Record{DailyUsed: 0, LastResetDate: "2026-03-14"}, rec)

	_, err = g.Increment(ctx)
	require.NoError(t, err)

	c.t = c.t.Add(24 * time.Hour)
	info, err = g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.DailyUsed)
}

func TestGate_DayBoundaryFollowsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	c := &clock{t: time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)}
	store := memory.New()
	g := NewGate(store, 5, WithClock(c.Now), WithLocation(loc))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, storageKey, Record{DailyUsed: 4, LastResetDate: "2026-03-14"}))

	info, err := g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, info.DailyUsed)
}

func TestGate_Reset(t *testing.T) {
	g, store, _ := newGate(t, 5)
	ctx := context.Background()

	_, err := g.Increment(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Reset(ctx))

	var rec Record
	assert.ErrorIs(t, store.Get(ctx, storageKey, &rec), kv.ErrNotFound)

	info, err := g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.DailyUsed)
}

type failingStore struct{ *memory.Store }

func (failingStore) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("disk unavailable")
}

func TestGate_StoreErrorsPropagate(t *testing.T) {
	g := NewGate(failingStore{memory.New()}, 5)

	_, err := g.CanUse(context.Background())
	assert.EqualError(t, err, "disk unavailable")
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("Local")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestNewGate_DefaultLimit(t *testing.T) {
	info, err := NewGate(memory.New(), 0).Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyLimit, info.DailyLimit)
}

func TestGate_ReserveCountsPending(t *testing.T) {
	g, _, _ := newGate(t, 2)
	ctx := context.Background()

	ok, err := g.Reserve(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = g.Reserve(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Reserve(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "two in-flight calls fill a limit of two")

	g.Release()
	info, err := g.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DailyUsed)

	ok, err = g.Reserve(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "released slot is available again")
	ok, err = g.Reserve(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_ReserveConcurrent(t *testing.T) {
	g, _, _ := newGate(t, 3)
	ctx := context.Background()

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Reserve(ctx)
			if err == nil && ok {
				granted.Add(1)
				_, _ = g.Commit(ctx)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), granted.Load())
	info, err := g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.DailyUsed)
}

package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newLoader(store cache.Store) *cache.Loader {
	return cache.NewLoader(store, cache.DefaultPolicy(), zap.NewNop()).
		WithClock(func() time.Time { return t0 })
}

func seed(t *testing.T, store cache.Store, key, data string, fetchedAt time.Time) {
	require.NoError(t, store.Set(context.Background(), key, cache.Entry{
		Data:          json.RawMessage(data),
		FetchedAt:     fetchedAt,
		SchemaVersion: cache.SchemaVersion,
	}))
}

func TestLoader_ServesCacheAndRevalidatesOnce(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyWorkOrders, `["old"]`, t0.Add(-time.Minute))

	var calls int32
	fetch := func(context.Context) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return json.RawMessage(`["new"]`), nil
	}

	l := newLoader(store)
	defer l.Close()

	notified := make(chan cache.Result, 1)
	unsubscribe := l.Subscribe(cache.KeyWorkOrders, func(r cache.Result) { notified <- r })
	defer unsubscribe()

	res, err := l.Load(ctx, cache.KeyWorkOrders, fetch, false)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceCache, res.Source)
	assert.JSONEq(t, `["old"]`, string(res.Data))

	l.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	entry, err := store.Get(ctx, cache.KeyWorkOrders)
	require.NoError(t, err)
	assert.JSONEq(t, `["new"]`, string(entry.Data))

	select {
	case r := <-notified:
		assert.Equal(t, cache.SourceNetwork, r.Source)
		assert.JSONEq(t, `["new"]`, string(r.Data))
	default:
		t.Fatal("subscriber was not notified")
	}
}

func TestLoader_BackgroundFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyContacts, `[1]`, t0)

	l := newLoader(store)
	defer l.Close()

	res, err := l.Load(ctx, cache.KeyContacts, func(context.Context) (json.RawMessage, error) {
		return nil, errors.New("offline")
	}, false)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceCache, res.Source)
	l.Wait()

	entry, err := store.Get(ctx, cache.KeyContacts)
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(entry.Data))
}

func TestLoader_MissFetchesSynchronously(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	l := newLoader(store)
	defer l.Close()

	res, err := l.Load(ctx, cache.KeyManagerProjects, func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"a":1}`), nil
	}, false)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceNetwork, res.Source)

	entry, err := store.Get(ctx, cache.KeyManagerProjects)
	require.NoError(t, err)
	assert.Equal(t, t0, entry.FetchedAt)
	assert.Equal(t, cache.SchemaVersion, entry.SchemaVersion)
}

func TestLoader_MissWithFailurePropagates(t *testing.T) {
	l := newLoader(cache.NewMemoryStore())
	defer l.Close()

	boom := errors.New("boom")
	_, err := l.Load(context.Background(), cache.KeyManagerProjects, func(context.Context) (json.RawMessage, error) {
		return nil, boom
	}, false)
	assert.ErrorIs(t, err, boom)
}

func TestLoader_ForceFreshFallsBackToCache(t *testing.T) {
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyTransferredProjects, `["cached"]`, t0.Add(-48*time.Hour))
	l := newLoader(store)
	defer l.Close()

	res, err := l.Load(context.Background(), cache.KeyTransferredProjects, func(context.Context) (json.RawMessage, error) {
		return nil, errors.New("offline")
	}, true)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceCache, res.Source)
	assert.JSONEq(t, `["cached"]`, string(res.Data))
}

func TestLoader_ExpiredOrForeignEntriesAreNotServed(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, "expired", `"old"`, t0.Add(-cache.DefaultMaxAge-time.Second))
	require.NoError(t, store.Set(ctx, "foreign", cache.Entry{Data: json.RawMessage(`"old"`), FetchedAt: t0, SchemaVersion: 0}))

	l := newLoader(store)
	defer l.Close()
	fetch := func(context.Context) (json.RawMessage, error) { return json.RawMessage(`"fresh"`), nil }

	for _, key := range []string{"expired", "foreign"} {
		res, err := l.Load(ctx, key, fetch, false)
		require.NoError(t, err)
		assert.Equal(t, cache.SourceNetwork, res.Source, key)
		assert.JSONEq(t, `"fresh"`, string(res.Data))
	}

	require.NoError(t, store.Set(ctx, "foreign-fallback", cache.Entry{Data: json.RawMessage(`"old"`), FetchedAt: t0, SchemaVersion: 0}))
	_, err := l.Load(ctx, "foreign-fallback", func(context.Context) (json.RawMessage, error) {
		return nil, errors.New("offline")
	}, false)
	assert.Error(t, err)
}

func TestLoader_DiscardsOutOfOrderBackgroundResponse(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyWorkOrders, `"v0"`, t0)

	l := newLoader(store)
	defer l.Close()

	var notified int32
	unsubscribe := l.Subscribe(cache.KeyWorkOrders, func(cache.Result) { atomic.AddInt32(&notified, 1) })
	defer unsubscribe()

	release := make(chan struct{})
	slow := func(context.Context) (json.RawMessage, error) {
		<-release
		return json.RawMessage(`"stale-background"`), nil
	}
	_, err := l.Load(ctx, cache.KeyWorkOrders, slow, false)
	require.NoError(t, err)

	res, err := l.Load(ctx, cache.KeyWorkOrders, func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`"manual"`), nil
	}, true)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceNetwork, res.Source)

	close(release)
	l.Wait()

	entry, err := store.Get(ctx, cache.KeyWorkOrders)
	require.NoError(t, err)
	assert.JSONEq(t, `"manual"`, string(entry.Data))
	assert.Zero(t, atomic.LoadInt32(&notified))
}

func TestLoader_UnsubscribedViewIsNotNotified(t *testing.T) {
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyWarrantyReplacements, `[]`, t0)
	l := newLoader(store)
	defer l.Close()

	var mu sync.Mutex
	var got []string
	unsubscribe := l.Subscribe(cache.KeyWarrantyReplacements, func(r cache.Result) {
		mu.Lock()
		got = append(got, string(r.Data))
		mu.Unlock()
	})
	unsubscribe()
	unsubscribe()

	_, err := l.Load(context.Background(), cache.KeyWarrantyReplacements, func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`[1]`), nil
	}, false)
	require.NoError(t, err)
	l.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, got)
}

func TestLoader_CloseCancelsBackgroundRefresh(t *testing.T) {
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyContacts, `"v0"`, t0)
	l := newLoader(store)

	_, err := l.Load(context.Background(), cache.KeyContacts, func(ctx context.Context) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, false)
	require.NoError(t, err)
	l.Close()

	entry, err := store.Get(context.Background(), cache.KeyContacts)
	require.NoError(t, err)
	assert.JSONEq(t, `"v0"`, string(entry.Data))
}

func TestLoader_LoadsRacingCloseStartNoLateRefresh(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, cache.KeyWorkOrders, `"v0"`, t0)
	l := newLoader(store)

	var calls int32
	fetch := func(context.Context) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return json.RawMessage(`"v1"`), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Load(ctx, cache.KeyWorkOrders, fetch, false)
		}()
	}
	l.Close()
	wg.Wait()

	before := atomic.LoadInt32(&calls)
	res, err := l.Load(ctx, cache.KeyWorkOrders, fetch, false)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceCache, res.Source)
	l.Wait()
	assert.Equal(t, before, atomic.LoadInt32(&calls), "a closed loader starts no refresh")
}

func TestLoadInto(t *testing.T) {
	l := newLoader(cache.NewMemoryStore())
	defer l.Close()

	type row struct {
		Name string `json:"name"`
	}
	rows, source, err := cache.LoadInto(context.Background(), l, cache.KeyContacts, func(context.Context) ([]row, error) {
		return []row{{Name: "Acme"}}, nil
	}, false)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceNetwork, source)
	assert.Equal(t, []row{{Name: "Acme"}}, rows)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, cache.KeyContacts)
	assert.ErrorIs(t, err, cache.ErrMiss)

	seed(t, store, "a/b c", `{"x":1}`, t0)
	entry, err := store.Get(ctx, "a/b c")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(entry.Data))
	assert.True(t, entry.FetchedAt.Equal(t0))

	require.NoError(t, store.Delete(ctx, "a/b c"))
	require.NoError(t, store.Delete(ctx, "a/b c"))
	_, err = store.Get(ctx, "a/b c")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping integration test: REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test: redis not available: %v", err)
	}

	var store cache.Store = cache.NewRedisStore(rdb, "fieldctl-test:", time.Minute)
	defer store.Delete(ctx, cache.KeyWorkOrders)

	_, err := store.Get(ctx, cache.KeyWorkOrders)
	assert.ErrorIs(t, err, cache.ErrMiss)

	seed(t, store, cache.KeyWorkOrders, `[42]`, t0)
	entry, err := store.Get(ctx, cache.KeyWorkOrders)
	require.NoError(t, err)
	assert.JSONEq(t, `[42]`, string(entry.Data))
}

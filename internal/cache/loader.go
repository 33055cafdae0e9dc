package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source tells where a Result came from
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Fetcher loads the authoritative payload for a key
type Fetcher func(ctx context.Context) (json.RawMessage, error)

// Result is what Load hands back to a view
type Result struct {
	Data      json.RawMessage
	Source    Source
	FetchedAt time.Time
}

type subscription struct {
	mu     sync.Mutex
	active bool
	fn     func(Result)
}

// Loader serves cached payloads and revalidates them. Every fetch for a key is tagged
// with an increasing sequence number; a response older than the newest one already
// applied is dropped, so a slow background refresh never overwrites a newer forced load.
type Loader struct {
	store  Store
	policy Policy
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	issued  map[string]uint64
	applied map[string]uint64
	subs    map[string]map[uint64]*subscription
	nextSub uint64
}

// NewLoader creates a loader over store. A zero MaxAge falls back to DefaultMaxAge.
func NewLoader(store Store, policy Policy, logger *zap.Logger) *Loader {
	if policy.MaxAge <= 0 {
		policy.MaxAge = DefaultMaxAge
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		store:   store,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		issued:  make(map[string]uint64),
		applied: make(map[string]uint64),
		subs:    make(map[string]map[uint64]*subscription),
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Load returns data for key.
//
// With a servable entry and forceFresh unset the entry is returned immediately and a
// single background refresh is started; its failure is logged and otherwise ignored.
// Otherwise fetch runs synchronously; on failure an existing compatible entry is
// returned instead of the error.
func (l *Loader) Load(ctx context.Context, key string, fetch Fetcher, forceFresh bool) (*Result, error) {
	cached := l.read(ctx, key)

	if !forceFresh && l.policy.Servable(cached, l.now()) {
		l.revalidate(key, fetch)
		return &Result{Data: cached.Data, Source: SourceCache, FetchedAt: cached.FetchedAt}, nil
	}

	seq := l.nextSeq(key)
	data, err := fetch(ctx)
	if err != nil {
		if l.policy.Compatible(cached) {
			l.logger.Warn("fetch failed, serving cached data",
				zap.String("key", key),
				zap.Time("fetched_at", cached.FetchedAt),
				zap.Error(err))
			return &Result{Data: cached.Data, Source: SourceCache, FetchedAt: cached.FetchedAt}, nil
		}
		return nil, err
	}

	result, _ := l.apply(ctx, key, seq, data)
	return result, nil
}

// Subscribe registers fn for results applied by background refreshes of key. After the
// returned function has been called fn is never invoked again; it must not be called
// from inside fn.
func (l *Loader) Subscribe(key string, fn func(Result)) (unsubscribe func()) {
	sub := &subscription{active: true, fn: fn}

	l.mu.Lock()
	l.nextSub++
	id := l.nextSub
	if l.subs[key] == nil {
		l.subs[key] = make(map[uint64]*subscription)
	}
	l.subs[key][id] = sub
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[key], id)
			l.mu.Unlock()

			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		})
	}
}

// Invalidate removes the cached entry for key
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}

// Wait blocks until running background refreshes finish
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels background refreshes and waits for them to return
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cancel()
	l.wg.Wait()
}

func (l *Loader) read(ctx context.Context, key string) *Entry {
	entry, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			l.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return entry
}

// revalidate starts a background refresh. Closing and starting share l.mu so no
// refresh is added once Close has begun waiting.
func (l *Loader) revalidate(key string, fetch Fetcher) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.issued[key]++
	seq := l.issued[key]
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		data, err := fetch(l.ctx)
		if err != nil {
			l.logger.Debug("background refresh failed", zap.String("key", key), zap.Error(err))
			return
		}
		result, applied := l.apply(l.ctx, key, seq, data)
		if applied {
			l.notify(key, *result)
		}
	}()
}

func (l *Loader) nextSeq(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issued[key]++
	return l.issued[key]
}

// apply stores data unless a newer response for key was applied first. The returned
// Result always carries data so a synchronous caller still gets its own answer.
func (l *Loader) apply(ctx context.Context, key string, seq uint64, data json.RawMessage) (*Result, bool) {
	now := l.now()
	result := &Result{Data: data, Source: SourceNetwork, FetchedAt: now}

	l.mu.Lock()
	if seq < l.applied[key] {
		l.mu.Unlock()
		l.logger.Debug("discarding out-of-order response",
			zap.String("key", key),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", l.applied[key]))
		return result, false
	}
	l.applied[key] = seq
	// store write stays under the lock so applied order matches store order
	err := l.store.Set(ctx, key, Entry{Data: data, FetchedAt: now, SchemaVersion: l.policy.SchemaVersion})
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, true
}

func (l *Loader) notify(key string, result Result) {
	l.mu.Lock()
	subs := make([]*subscription, 0, len(l.subs[key]))
	for _, s := range l.subs[key] {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		if s.active {
			s.fn(result)
		}
		s.mu.Unlock()
	}
}

// LoadInto is Load for typed payloads
func LoadInto[T any](ctx context.Context, l *Loader, key string, fetch func(context.Context) (T, error), forceFresh bool) (T, Source, error) {
	var out T
	res, err := l.Load(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}, forceFresh)
	if err != nil {
		return out, "", err
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return out, "", fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return out, res.Source, nil
}

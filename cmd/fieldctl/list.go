package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fieldline/crm-api/internal/cache"
)

// showList renders a cached list at once. When it came from the cache the background
// refresh is awaited and the list is rendered again if the server returned something new.
func showList[T any](ctx context.Context, a *app, key string, fetch func(context.Context) (T, error), render func(T) string) error {
	var (
		mu        sync.Mutex
		refreshed json.RawMessage
	)
	unsubscribe := a.loader.Subscribe(key, func(res cache.Result) {
		mu.Lock()
		refreshed = res.Data
		mu.Unlock()
	})
	defer unsubscribe()

	res, err := a.loader.Load(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}, forceFresh)
	if err != nil {
		return err
	}

	var data T
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	fmt.Println(render(data))
	fmt.Println(sourceNote(res.Source, res.FetchedAt))

	if res.Source != cache.SourceCache {
		return nil
	}
	a.loader.Wait()

	mu.Lock()
	defer mu.Unlock()
	if refreshed == nil || bytes.Equal(refreshed, res.Data) {
		return nil
	}
	var fresh T
	if err := json.Unmarshal(refreshed, &fresh); err != nil {
		return fmt.Errorf("failed to decode refreshed %s: %w", key, err)
	}
	fmt.Println()
	fmt.Println(okStyle.Render("updated from server"))
	fmt.Println(render(fresh))
	return nil
}

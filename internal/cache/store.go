// Package cache implements the stale-while-revalidate policy used by list views:
// serve the last good payload at once, refresh it in the background and reconcile.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// SchemaVersion is bumped whenever a cached payload shape changes
const SchemaVersion = 1

// Well-known keys, one per list domain
const (
	KeyContacts             = "contactsData"
	KeyManagerProjects      = "managerProjectsData"
	KeyTransferredProjects  = "transferredProjectsData"
	KeyWorkOrders           = "workOrdersData"
	KeyWarrantyReplacements = "warrantyReplacementsData"
)

// ErrMiss is returned by stores when a key has no entry
var ErrMiss = errors.New("cache miss")

// Entry is one cached payload with the metadata needed to judge its freshness
type Entry struct {
	Data          json.RawMessage `json:"data"`
	FetchedAt     time.Time       `json:"fetchedAt"`
	SchemaVersion int             `json:"schemaVersion"`
}

// Store persists entries by key. Last write wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// Policy decides whether an entry may be served
type Policy struct {
	// MaxAge bounds how old a served entry may be
	MaxAge time.Duration
	// SchemaVersion entries must match to be used at all
	SchemaVersion int
}

// DefaultMaxAge applies when a Policy has no MaxAge
const DefaultMaxAge = 24 * time.Hour

// DefaultPolicy returns the policy used by the client
func DefaultPolicy() Policy {
	return Policy{MaxAge: DefaultMaxAge, SchemaVersion: SchemaVersion}
}

// Compatible reports whether the entry was written with the current payload shape
func (p Policy) Compatible(e *Entry) bool {
	return e != nil && e.SchemaVersion == p.SchemaVersion
}

// Servable reports whether the entry can be returned without a synchronous fetch
func (p Policy) Servable(e *Entry, now time.Time) bool {
	if !p.Compatible(e) {
		return false
	}
	return now.Sub(e.FetchedAt) <= p.MaxAge
}

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return &e, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

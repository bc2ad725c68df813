package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

// Result is one finished pipeline run.
type Result struct {
	ID       string                  `json:"id"`
	SeriesID string                  `json:"series_id,omitempty"`
	Series   types.AngularSeries     `json:"-"`
	Report   *types.ProcessingReport `json:"report"`
	Created  time.Time               `json:"created_at"`
}

// Store is a thread-safe in-memory result store. Run evicts expired entries
// in the background.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Result
	ttl  time.Duration
	max  int
	now  func() time.Time
}

// New creates a Store. ttl <= 0 disables expiry and max <= 0 disables the cap.
func New(ttl time.Duration, max int) *Store {
	return &Store{
		data: make(map[string]*Result),
		ttl:  ttl,
		max:  max,
		now:  time.Now,
	}
}

// Add stores a new result for series and report and returns it. The ID is a
// random UUID. Callers must not modify series or report afterwards.
func (s *Store) Add(seriesID string, series types.AngularSeries, report *types.ProcessingReport) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Result{
		ID:       uuid.NewString(),
		SeriesID: seriesID,
		Series:   series,
		Report:   report,
		Created:  s.now(),
	}
	s.data[r.ID] = r
	if s.max > 0 && len(s.data) > s.max {
		s.dropOldestLocked(len(s.data) - s.max)
	}
	return r
}

// Get returns the result with the given ID, if it exists and has not expired.
func (s *Store) Get(id string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[id]
	if !ok || s.expired(r, s.now()) {
		return nil, false
	}
	return r, true
}

// List returns the live results, newest first.
func (s *Store) List() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]*Result, 0, len(s.data))
	for _, r := range s.data {
		if !s.expired(r, now) {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out
}

// Count returns the number of held results, including expired ones not yet
// evicted.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes results older than now minus TTL and returns how many went.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, r := range s.data {
		if s.expired(r, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the eviction loop, ticking at half the TTL (minimum 1 second).
// It blocks until ctx is cancelled and returns at once when TTL is disabled.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired results", "count", n)
			}
		}
	}
}

func (s *Store) expired(r *Result, now time.Time) bool {
	return s.ttl > 0 && !r.Created.After(now.Add(-s.ttl))
}

func (s *Store) dropOldestLocked(n int) {
	all := make([]*Result, 0, len(s.data))
	for _, r := range s.data {
		all = append(all, r)
	}
	sortNewestFirst(all)
	for _, r := range all[len(all)-n:] {
		delete(s.data, r.ID)
	}
}

func sortNewestFirst(rs []*Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Created.Equal(rs[j].Created) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].Created.After(rs[j].Created)
	})
}

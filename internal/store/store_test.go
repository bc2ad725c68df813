package store

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

func report(points int) *types.ProcessingReport {
	return &types.ProcessingReport{DataPoints: points}
}

func series() types.AngularSeries {
	return types.AngularSeries{Angles: []float64{0, 1}, Values: []float64{1, 2}}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestAddAndGet(t *testing.T) {
	st := New(5*time.Minute, 0)
	r := st.Add("scan-1", series(), report(2))

	if _, err := uuid.Parse(r.ID); err != nil {
		t.Fatalf("ID %q is not a uuid: %v", r.ID, err)
	}
	got, ok := st.Get(r.ID)
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if got.SeriesID != "scan-1" || got.Report.DataPoints != 2 {
		t.Errorf("Get: got %+v", got)
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5*time.Minute, 0)
	if _, ok := st.Get("unknown"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestGet_Expired(t *testing.T) {
	base := time.Now()
	st := New(5*time.Minute, 0)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	r := st.Add("", series(), report(2))

	st.now = fixedClock(base)
	if _, ok := st.Get(r.ID); ok {
		t.Fatal("Get on expired entry: expected false, got true")
	}
}

func TestAdd_UniqueIDs(t *testing.T) {
	st := New(time.Minute, 0)
	a := st.Add("same", series(), report(1))
	b := st.Add("same", series(), report(1))
	if a.ID == b.ID {
		t.Fatalf("duplicate id %q", a.ID)
	}
	if st.Count() != 2 {
		t.Errorf("Count: got %d, want 2", st.Count())
	}
}

func TestList_NewestFirstExcludesStale(t *testing.T) {
	base := time.Now()
	st := New(5*time.Minute, 0)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Add("old", series(), report(1))
	st.now = fixedClock(base.Add(-2 * time.Minute))
	st.Add("older-live", series(), report(1))
	st.now = fixedClock(base.Add(-1 * time.Minute))
	st.Add("newest", series(), report(1))

	st.now = fixedClock(base)
	got := st.List()
	if len(got) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(got))
	}
	if got[0].SeriesID != "newest" || got[1].SeriesID != "older-live" {
		t.Errorf("List order: got %q, %q", got[0].SeriesID, got[1].SeriesID)
	}
}

func TestAdd_CapDropsOldest(t *testing.T) {
	base := time.Now()
	st := New(time.Hour, 2)

	for i, id := range []string{"a", "b", "c"} {
		st.now = fixedClock(base.Add(time.Duration(i) * time.Second))
		st.Add(id, series(), report(1))
	}

	if st.Count() != 2 {
		t.Fatalf("Count: got %d, want 2", st.Count())
	}
	got := st.List()
	if got[0].SeriesID != "c" || got[1].SeriesID != "b" {
		t.Errorf("kept %q, %q; want c, b", got[0].SeriesID, got[1].SeriesID)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	st := New(5*time.Minute, 0)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Add("old1", series(), report(1))
	st.Add("old2", series(), report(1))

	st.now = fixedClock(base)
	st.Add("live", series(), report(1))

	if removed := st.Evict(base); removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
}

func TestEvict_NoTTL(t *testing.T) {
	st := New(0, 0)
	st.now = fixedClock(time.Now().Add(-24 * time.Hour))
	r := st.Add("", series(), report(1))

	if removed := st.Evict(time.Now()); removed != 0 {
		t.Errorf("Evict without TTL: removed %d, want 0", removed)
	}
	st.now = time.Now
	if _, ok := st.Get(r.ID); !ok {
		t.Error("Get without TTL: entry should never expire")
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5*time.Minute, 20)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Add("src", series(), report(2))
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()

	if st.Count() != 20 {
		t.Errorf("Count after concurrent adds: got %d, want 20", st.Count())
	}
}

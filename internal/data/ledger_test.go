package data

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestLedger(t *testing.T, capacity int) (*LedgerStore, *testClock) {
	t.Helper()
	s, err := NewLedgerStore(filepath.Join(t.TempDir(), "ledger.db"), capacity)
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := &testClock{now: time.Date(2025, 7, 30, 9, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	return s, clock
}

func TestLedger_SetGet(t *testing.T) {
	s, _ := newTestLedger(t, 10)
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Expected miss, got found=%v err=%v", found, err)
	}
	if err := s.Set(ctx, "k", []byte(`{"id":"1"}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, found, err := s.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Expected hit, got found=%v err=%v", found, err)
	}
	if string(value) != `{"id":"1"}` {
		t.Errorf("Expected stored value, got %s", value)
	}
}

func TestLedger_Expiry(t *testing.T) {
	s, clock := newTestLedger(t, 10)
	ctx := context.Background()

	s.Set(ctx, "short", []byte("1"), 10*time.Minute)
	clock.now = clock.now.Add(5 * time.Minute)
	s.Set(ctx, "long", []byte("2"), time.Hour)

	clock.now = clock.now.Add(6 * time.Minute)
	if _, found, _ := s.Get(ctx, "short"); found {
		t.Error("Expected expired entry to be hidden")
	}
	if _, found, _ := s.Get(ctx, "long"); !found {
		t.Error("Expected live entry to be found")
	}

	n, err := s.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("Expected 1 purged, got %d (%v)", n, err)
	}
	if count, _ := s.Count(ctx); count != 1 {
		t.Errorf("Expected 1 entry left, got %d", count)
	}
}

func TestLedger_CapacityEvictsOldest(t *testing.T) {
	s, clock := newTestLedger(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		clock.now = clock.now.Add(time.Second)
		if err := s.Set(ctx, fmt.Sprintf("k%d", i), []byte("x"), time.Hour); err != nil {
			t.Fatalf("Set k%d failed: %v", i, err)
		}
	}

	if count, _ := s.Count(ctx); count != 3 {
		t.Errorf("Expected 3 entries, got %d", count)
	}
	if _, found, _ := s.Get(ctx, "k0"); found {
		t.Error("Expected oldest entry evicted")
	}
	if _, found, _ := s.Get(ctx, "k4"); !found {
		t.Error("Expected newest entry kept")
	}
}

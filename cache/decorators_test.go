package cache

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoggedCache_HitRatio(t *testing.T) {
	c := NewLoggedCache(NewPerpetualCache("test"), zerolog.Nop())

	if got := c.HitRatio(); got != 0 {
		t.Fatalf("hit ratio before any request = %v, want 0", got)
	}

	c.Put("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Get("missing")

	if c.Requests() != 4 {
		t.Errorf("requests = %d, want 4", c.Requests())
	}
	if c.Hits() != 2 {
		t.Errorf("hits = %d, want 2", c.Hits())
	}
	if got := c.HitRatio(); got != 0.5 {
		t.Errorf("hit ratio = %v, want 0.5", got)
	}
}

func TestSerializedCache_CopiesIsolateMutation(t *testing.T) {
	c := NewSerializedCache(NewPerpetualCache("test"))

	row := map[string]any{"id": int64(1), "name": "alice"}
	c.Put("k", []any{row})

	first, ok := c.Get("k")
	if !ok {
		t.Fatalf("expected a hit")
	}
	firstRow := first.([]any)[0].(map[string]any)
	firstRow["name"] = "mutated"

	second, _ := c.Get("k")
	secondRow := second.([]any)[0].(map[string]any)
	if secondRow["name"] != "alice" {
		t.Errorf("mutation through one caller leaked into another: %v", secondRow["name"])
	}
}

func TestSerializedCache_RoundTripsMapRows(t *testing.T) {
	c := NewSerializedCache(NewPerpetualCache("test"))
	rows := []any{
		map[string]any{"id": int64(1)},
		map[string]any{"id": int64(2)},
	}
	c.Put("k", rows)

	got, ok := c.Get("k")
	if !ok {
		t.Fatalf("expected a hit")
	}
	list, ok := got.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("got %T of len %d, want []any of len 2", got, len(list))
	}
}

func TestScheduledCache_ClearsAfterInterval(t *testing.T) {
	base := NewPerpetualCache("test")
	c := NewScheduledCache(base, time.Minute)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.lastClear = now

	c.Put("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("entry should be present before the interval elapses")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Errorf("the elapsed interval should have wiped the cache")
	}
}

func TestSynchronizedCache_DelegatesAllOperations(t *testing.T) {
	c := NewSynchronizedCache(NewPerpetualCache("test"))
	c.Put("a", 1)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v; want 1, true", v, ok)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
	c.Remove("a")
	c.Clear()
	if c.Size() != 0 {
		t.Errorf("size after clear = %d, want 0", c.Size())
	}
	if c.ID() != "test" {
		t.Errorf("id = %s, want test", c.ID())
	}
}

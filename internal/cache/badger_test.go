package cache

import (
	"context"
	"testing"

	"github.com/ssamantle/ssamantle/internal/models"
)

func newTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := OpenBadgerCache(BadgerConfig{InMemory: true, KeyPrefix: "test"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerCache_activeDateUnset(t *testing.T) {
	c := newTestCache(t)
	date, err := c.ActiveDate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if date != "" {
		t.Errorf("got %q, want empty", date)
	}
}

func TestBadgerCache_rotationCycle(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// Day one: write record, flip pointer.
	if err := c.SaveAnswer(ctx, "2024-06-01", "사과"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTopK(ctx, "2024-06-01", []models.Neighbor{{Word: "배", Score: 0.9}}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetActiveDate(ctx, "2024-06-01"); err != nil {
		t.Fatal(err)
	}

	// Day two: write, flip, delete previous.
	if err := c.SaveAnswer(ctx, "2024-06-02", "포도"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveTopK(ctx, "2024-06-02", []models.Neighbor{{Word: "귤", Score: 0.8}, {Word: "감", Score: 0.7}}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetActiveDate(ctx, "2024-06-02"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteDay(ctx, "2024-06-01"); err != nil {
		t.Fatal(err)
	}

	date, err := c.ActiveDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if date != "2024-06-02" {
		t.Errorf("active date: got %q", date)
	}
	answer, err := c.Answer(ctx, "2024-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "포도" {
		t.Errorf("answer: got %q", answer)
	}
	topk, found, err := c.TopK(ctx, "2024-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if !found || len(topk) != 2 || topk[0].Word != "귤" {
		t.Errorf("topk: found=%v %v", found, topk)
	}

	// Previous day's record is gone.
	if answer, _ := c.Answer(ctx, "2024-06-01"); answer != "" {
		t.Errorf("old answer survived: %q", answer)
	}
	if _, found, _ := c.TopK(ctx, "2024-06-01"); found {
		t.Error("old topk survived")
	}
}

func TestBadgerCache_deleteMissingDayIsNoop(t *testing.T) {
	c := newTestCache(t)
	if err := c.DeleteDay(context.Background(), "1999-01-01"); err != nil {
		t.Errorf("delete of missing day: %v", err)
	}
}

func TestBadgerCache_emptyTopKRecordIsDistinctFromAbsent(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.SaveTopK(ctx, "2024-06-01", nil); err != nil {
		t.Fatal(err)
	}
	topk, found, err := c.TopK(ctx, "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("empty record should still be found")
	}
	if len(topk) != 0 {
		t.Errorf("got %v", topk)
	}
	if _, found, _ := c.TopK(ctx, "2024-06-02"); found {
		t.Error("absent record reported as found")
	}
}

func TestBadgerCache_topKOrderPreserved(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	in := []models.Neighbor{
		{Word: "a", Score: 0.9},
		{Word: "b", Score: 0.5},
		{Word: "c", Score: 0.1},
	}
	if err := c.SaveTopK(ctx, "2024-06-01", in); err != nil {
		t.Fatal(err)
	}
	out, _, err := c.TopK(ctx, "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("order broken at %d: %v", i, out)
		}
	}
}

func TestOpenBadgerCache_persistentRequiresPath(t *testing.T) {
	if _, err := OpenBadgerCache(BadgerConfig{}); err == nil {
		t.Error("expected error when path missing")
	}
}

func TestBadgerCache_persistentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := OpenBadgerCache(BadgerConfig{Path: dir, KeyPrefix: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetActiveDate(ctx, "2024-06-01"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c2, err := OpenBadgerCache(BadgerConfig{Path: dir, KeyPrefix: "p"})
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	date, err := c2.ActiveDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if date != "2024-06-01" {
		t.Errorf("active date after reopen: got %q", date)
	}
}

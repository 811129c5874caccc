package series

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/runstats/internal/testutil"
)

func testCheckpointStore(t *testing.T) *CheckpointStore {
	t.Helper()
	cs, err := OpenCheckpointStore(context.Background(), testutil.NewStore(t))
	if err != nil {
		t.Fatalf("OpenCheckpointStore: %v", err)
	}
	return cs
}

func TestCheckpointStore_SaveAndList(t *testing.T) {
	cs := testCheckpointStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := cs.Save(ctx, []Checkpoint{
		{Name: "b", Kind: KindRegression, State: []byte{1, 2}, Samples: 2, UpdatedAt: now},
		{Name: "a", Kind: KindStatistics, State: []byte{3}, Samples: 1, UpdatedAt: now},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Upsert replaces the current row.
	err = cs.Save(ctx, []Checkpoint{
		{Name: "a", Kind: KindStatistics, State: []byte{4, 5, 6}, Samples: 7, UpdatedAt: now.Add(time.Minute)},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	cps, err := cs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cps) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(cps))
	}
	if cps[0].Name != "a" || cps[1].Name != "b" {
		t.Errorf("List() order = %q, %q; want a, b", cps[0].Name, cps[1].Name)
	}
	if cps[0].Samples != 7 || string(cps[0].State) != string([]byte{4, 5, 6}) {
		t.Errorf("List()[0] = %+v, want upserted row", cps[0])
	}
	if !cps[0].UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v, want %v", cps[0].UpdatedAt, now.Add(time.Minute))
	}
	if cps[1].Kind != KindRegression {
		t.Errorf("Kind = %q, want regression", cps[1].Kind)
	}
}

func TestCheckpointStore_SaveEmpty(t *testing.T) {
	cs := testCheckpointStore(t)
	if err := cs.Save(context.Background(), nil); err != nil {
		t.Errorf("Save(nil) error = %v", err)
	}
}

func TestCheckpointStore_Delete(t *testing.T) {
	cs := testCheckpointStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = cs.Save(ctx, []Checkpoint{{Name: "a", Kind: KindStatistics, State: []byte{1}, UpdatedAt: now}})

	if err := cs.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	cps, _ := cs.List(ctx)
	if len(cps) != 0 {
		t.Errorf("len(List()) after delete = %d, want 0", len(cps))
	}
	hist, _ := cs.History(ctx, "a", 0)
	if len(hist) != 1 {
		t.Errorf("history after delete = %d entries, want 1", len(hist))
	}
}

func TestCheckpointStore_HistoryAndPrune(t *testing.T) {
	cs := testCheckpointStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := cs.Save(ctx, []Checkpoint{{
			Name:      "a",
			Kind:      KindStatistics,
			State:     []byte{byte(i)},
			Samples:   int64(i),
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}})
		if err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
	}

	hist, err := cs.History(ctx, "a", 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("len(History(limit 3)) = %d, want 3", len(hist))
	}
	if hist[0].Samples != 4 || hist[2].Samples != 2 {
		t.Errorf("History() samples = %d..%d, want newest first 4..2", hist[0].Samples, hist[2].Samples)
	}
	if hist[0].ID == "" || hist[0].ID == hist[1].ID {
		t.Errorf("history ids not unique: %q, %q", hist[0].ID, hist[1].ID)
	}

	pruned, err := cs.PruneHistory(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("PruneHistory: %v", err)
	}
	if pruned != 2 {
		t.Errorf("PruneHistory() = %d, want 2", pruned)
	}
	hist, _ = cs.History(ctx, "a", 0)
	if len(hist) != 3 {
		t.Errorf("len(History()) after prune = %d, want 3", len(hist))
	}
}

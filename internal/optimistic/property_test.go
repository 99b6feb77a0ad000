package optimistic_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"pgregory.net/rapid"

	"optask/internal/backend/mockstore"
	"optask/internal/optimistic"
	"optask/internal/service"
)

func sortedByID(items []service.Item) []service.Item {
	out := service.Clone(items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// runOps applies a random sequence of operations, each resolved before the
// next starts, and checks the collection against the store after each one.
func runOps(t *rapid.T, failRate float64) {
	store := mockstore.New(
		mockstore.WithLatency(0),
		mockstore.WithFailRate(failRate),
		mockstore.WithRand(rand.New(rand.NewPCG(rapid.Uint64().Draw(t, "seed"), 7))),
	)
	c := optimistic.New(store)
	defer c.Close()
	ctx := context.Background()

	for c.Load(ctx) != nil {
	}

	steps := rapid.IntRange(1, 30).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		items := c.Snapshot().Items
		var err error
		switch kind := rapid.SampledFrom([]string{"create", "toggle", "delete"}).Draw(t, "kind"); {
		case kind == "create" || len(items) == 0:
			_, err = c.Create(ctx, rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "title"))
		case kind == "toggle":
			err = c.Toggle(ctx, rapid.SampledFrom(items).Draw(t, "item").ID)
		default:
			err = c.Delete(ctx, rapid.SampledFrom(items).Draw(t, "item").ID)
		}
		if err != nil && !errors.Is(err, service.ErrNetworkFailure) {
			t.Fatalf("unexpected error: %v", err)
		}

		got := c.Snapshot().Items
		want := store.Items()
		if failRate == 0 {
			// No rollbacks: order must match exactly.
			if len(got) != len(want) {
				t.Fatalf("collection %+v != store %+v", got, want)
			}
			for j := range want {
				if got[j] != want[j] {
					t.Fatalf("collection %+v != store %+v", got, want)
				}
			}
			continue
		}
		// Delete rollbacks reinsert at the front, so compare as sets.
		got, want = sortedByID(got), sortedByID(want)
		if len(got) != len(want) {
			t.Fatalf("collection %+v != store %+v", got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("collection %+v != store %+v", got, want)
			}
		}
	}
}

func TestProperty_SuccessfulOperationsMatchStore(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) { runOps(t, 0) })
}

func TestProperty_FailuresNeverLeaveDeltas(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) { runOps(t, 0.4) })
}

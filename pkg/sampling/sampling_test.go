package sampling

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestDraw(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	t.Run("returns the requested size", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		picked := Draw(ids, 3, rng)
		if len(picked) != 3 {
			t.Errorf("expected 3 identifiers, got %d", len(picked))
		}
	})

	t.Run("returns everything when the universe is smaller", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		picked := Draw(ids, 100, rng)
		if len(picked) != len(ids) {
			t.Errorf("expected %d identifiers, got %d", len(ids), len(picked))
		}
	})

	t.Run("draws without replacement", func(t *testing.T) {
		rng := rand.New(rand.NewSource(2))
		picked := Draw(ids, len(ids), rng)

		seen := make(map[string]bool)
		for _, id := range picked {
			if seen[id] {
				t.Fatalf("identifier %q drawn twice", id)
			}
			seen[id] = true
		}
	})

	t.Run("does not modify the input", func(t *testing.T) {
		original := make([]string, len(ids))
		copy(original, ids)

		rng := rand.New(rand.NewSource(3))
		Draw(ids, 4, rng)

		if !reflect.DeepEqual(ids, original) {
			t.Error("input slice was modified")
		}
	})

	t.Run("is deterministic for a fixed seed", func(t *testing.T) {
		first := Draw(ids, 5, rand.New(rand.NewSource(42)))
		second := Draw(ids, 5, rand.New(rand.NewSource(42)))

		if !reflect.DeepEqual(first, second) {
			t.Errorf("same seed produced different samples: %v vs %v", first, second)
		}
	})

	t.Run("empty universe yields an empty sample", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		picked := Draw(nil, 10, rng)
		if len(picked) != 0 {
			t.Errorf("expected empty sample, got %v", picked)
		}
	})
}

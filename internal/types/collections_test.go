package types

import (
	"testing"
)

// =============================================================================
// Section 1: Generic Sorted[T, K] Tests
// =============================================================================

// TestSortedBasic tests basic sorting with string keys.
func TestSortedBasic(t *testing.T) {
	items := []string{"charlie", "alpha", "bravo"}
	sorted := NewSorted(items, func(s string) string { return s })

	if sorted.Len() != 3 {
		t.Errorf("expected Len() = 3, got %d", sorted.Len())
	}

	expected := []string{"alpha", "bravo", "charlie"}
	for i, item := range sorted.Items() {
		if item != expected[i] {
			t.Errorf("Items()[%d] = %q, want %q", i, item, expected[i])
		}
	}
}

// TestSortedFirst tests First() returns smallest key element.
func TestSortedFirst(t *testing.T) {
	items := []int{30, 10, 20}
	sorted := NewSorted(items, func(i int) int { return i })

	if sorted.First() != 10 {
		t.Errorf("First() = %d, want 10", sorted.First())
	}
}

// TestSortedFirstEmpty tests First() returns zero value on empty.
func TestSortedFirstEmpty(t *testing.T) {
	sorted := NewSorted([]string{}, func(s string) string { return s })

	if sorted.First() != "" {
		t.Errorf("First() on empty = %q, want empty string", sorted.First())
	}
}

// TestSortedLenEmpty tests Len() on empty collection.
func TestSortedLenEmpty(t *testing.T) {
	sorted := NewSorted([]int{}, func(i int) int { return i })

	if sorted.Len() != 0 {
		t.Errorf("Len() on empty = %d, want 0", sorted.Len())
	}
}

// TestSortedDoesNotMutateInput tests that input slice is not modified.
func TestSortedDoesNotMutateInput(t *testing.T) {
	original := []string{"charlie", "alpha", "bravo"}
	originalCopy := make([]string, len(original))
	copy(originalCopy, original)

	_ = NewSorted(original, func(s string) string { return s })

	for i := range original {
		if original[i] != originalCopy[i] {
			t.Errorf("Input was mutated: original[%d] = %q, was %q", i, original[i], originalCopy[i])
		}
	}
}

// TestSortedIntKeys tests sorting by integer key.
func TestSortedIntKeys(t *testing.T) {
	type item struct {
		name  string
		value int
	}
	items := []item{
		{name: "c", value: 30},
		{name: "a", value: 10},
		{name: "b", value: 20},
	}

	sorted := NewSorted(items, func(i item) int { return i.value })

	expected := []string{"a", "b", "c"}
	for i, item := range sorted.Items() {
		if item.name != expected[i] {
			t.Errorf("Items()[%d].name = %q, want %q", i, item.name, expected[i])
		}
	}
}

// TestSortedDeterminism tests that same input always produces same output.
func TestSortedDeterminism(t *testing.T) {
	items := []string{"delta", "alpha", "charlie", "bravo"}

	var firstResult []string
	for i := 0; i < 10; i++ {
		sorted := NewSorted(items, func(s string) string { return s })
		if firstResult == nil {
			firstResult = sorted.Items()
		} else {
			for j, item := range sorted.Items() {
				if item != firstResult[j] {
					t.Errorf("Run %d: Items()[%d] = %q, want %q (non-deterministic)", i, j, item, firstResult[j])
				}
			}
		}
	}
}

// TestSortedSingleItem tests behavior with single item.
func TestSortedSingleItem(t *testing.T) {
	sorted := NewSorted([]string{"only"}, func(s string) string { return s })

	if sorted.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sorted.Len())
	}
	if sorted.First() != "only" {
		t.Errorf("First() = %q, want %q", sorted.First(), "only")
	}
}

// =============================================================================
// Section 2: Semaphore Tests
// =============================================================================

// TestSemaphoreBasic tests basic semaphore acquire/release.
func TestSemaphoreBasic(t *testing.T) {
	sem := NewSemaphore(2)

	sem.Acquire()
	sem.Acquire()

	sem.Release()

	sem.Acquire()

	sem.Release()
	sem.Release()
}

// TestSemaphoreTryAcquire tests non-blocking acquisition at the limit.
func TestSemaphoreTryAcquire(t *testing.T) {
	sem := NewSemaphore(1)

	if !sem.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if sem.TryAcquire() {
		t.Fatal("expected second TryAcquire to fail while slot is held")
	}
	sem.Release()
	if !sem.TryAcquire() {
		t.Fatal("expected TryAcquire to succeed after Release")
	}
}
